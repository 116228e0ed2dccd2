package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"spot-letter/apperrors"
	"spot-letter/httpclient"
	"spot-letter/models"
)

const googleFieldMask = "places.id,places.displayName,places.formattedAddress,places.location," +
	"places.types,places.primaryType,places.addressComponents"

// GoogleClient 는 Places API (New) 텍스트 검색 클라이언트다.
type GoogleClient struct {
	base     *httpclient.BaseClient
	apiKey   string
	pageSize int
}

func NewGoogleClient(baseURL, apiKey string, timeout time.Duration) *GoogleClient {
	return &GoogleClient{
		base:     httpclient.NewBaseClient(baseURL, timeout),
		apiKey:   apiKey,
		pageSize: 5,
	}
}

type googleSearchRequest struct {
	TextQuery    string `json:"textQuery"`
	LanguageCode string `json:"languageCode,omitempty"`
	RegionCode   string `json:"regionCode,omitempty"`
	PageSize     int    `json:"pageSize,omitempty"`
}

type googleSearchResponse struct {
	Places []struct {
		ID          string `json:"id"`
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		FormattedAddress string `json:"formattedAddress"`
		Location         *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		Types             []string `json:"types"`
		PrimaryType       string   `json:"primaryType"`
		AddressComponents []struct {
			LongText  string   `json:"longText"`
			ShortText string   `json:"shortText"`
			Types     []string `json:"types"`
		} `json:"addressComponents"`
	} `json:"places"`
}

type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// SearchText 는 query 로 장소를 검색한다. 결과가 없으면 빈 슬라이스다.
func (c *GoogleClient) SearchText(ctx context.Context, query, language, region string) ([]PlaceResult, error) {
	const op = "places.searchText"

	payload, err := json.Marshal(googleSearchRequest{
		TextQuery:    query,
		LanguageCode: language,
		RegionCode:   region,
		PageSize:     c.pageSize,
	})
	if err != nil {
		return nil, err
	}
	req, err := c.base.NewRequest(ctx, http.MethodPost, "/v1/places:searchText", nil, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", googleFieldMask)

	status, body, err := c.base.Do(req, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, op, err)
	}
	if status != http.StatusOK {
		var ge googleError
		msg := httpclient.Snippet(body)
		if json.Unmarshal(body, &ge) == nil && ge.Error.Message != "" {
			msg = ge.Error.Message
		}
		return nil, apperrors.New(apperrors.KindFromStatus(status), op, status, msg)
	}

	var resp googleSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalid, op, fmt.Errorf("decode response: %w", err))
	}

	out := make([]PlaceResult, 0, len(resp.Places))
	for _, p := range resp.Places {
		r := PlaceResult{
			ExternalID:  p.ID,
			Name:        p.DisplayName.Text,
			Address:     p.FormattedAddress,
			Tags:        p.Types,
			PrimaryType: p.PrimaryType,
		}
		if p.Location != nil {
			r.Coordinates = &models.Coordinates{Lat: p.Location.Latitude, Lon: p.Location.Longitude}
		}
		for _, ac := range p.AddressComponents {
			r.AddressComponents = append(r.AddressComponents, AddressComponent{
				LongText:  ac.LongText,
				ShortText: ac.ShortText,
				Types:     ac.Types,
			})
		}
		out = append(out, r)
	}
	return out, nil
}
