package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spot-letter/apperrors"
	"spot-letter/httpclient"
)

// NominatimClient 는 OpenStreetMap Nominatim 역지오코딩 클라이언트다.
type NominatimClient struct {
	base      *httpclient.BaseClient
	userAgent string
}

func NewNominatimClient(baseURL, userAgent string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		base:      httpclient.NewBaseClient(baseURL, timeout),
		userAgent: userAgent,
	}
}

type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		Country      string `json:"country"`
		CountryCode  string `json:"country_code"`
		State        string `json:"state"`
		Province     string `json:"province"`
		Region       string `json:"region"`
		City         string `json:"city"`
		Town         string `json:"town"`
		Village      string `json:"village"`
		Municipality string `json:"municipality"`
	} `json:"address"`
}

// ReverseGeocode 는 좌표의 국가/광역/도시를 Nominatim 어휘로 반환한다.
func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64, language string) (*ReverseResult, error) {
	const op = "nominatim.reverse"

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 7, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 7, 64))
	q.Set("format", "jsonv2")
	q.Set("zoom", "14")
	q.Set("addressdetails", "1")
	if language != "" {
		q.Set("accept-language", language)
	}

	req, err := c.base.NewRequest(ctx, http.MethodGet, "/reverse", q, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	status, body, err := c.base.Do(req, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, op, err)
	}
	if status != http.StatusOK {
		return nil, apperrors.New(apperrors.KindFromStatus(status), op, status, httpclient.Snippet(body))
	}

	var resp nominatimResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalid, op, fmt.Errorf("decode response: %w", err))
	}
	if resp.Error != "" {
		return nil, apperrors.New(apperrors.KindNotFound, op, 0, resp.Error)
	}

	a := resp.Address
	state := firstNonEmpty(a.State, a.Province, a.Region)
	return &ReverseResult{
		Country:     a.Country,
		CountryCode: strings.ToUpper(a.CountryCode),
		State:       state,
		City:        firstNonEmpty(a.City, a.Municipality),
		Town:        a.Town,
		Village:     a.Village,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
