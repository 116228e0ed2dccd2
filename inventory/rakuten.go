package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"spot-letter/apperrors"
	"spot-letter/httpclient"
	"spot-letter/models"
)

const rakutenKeywordPath = "/services/api/Travel/KeywordHotelSearch/20170426"

// RakutenClient 는 Rakuten Travel KeywordHotelSearch 클라이언트다.
type RakutenClient struct {
	base          *httpclient.BaseClient
	applicationID string
}

func NewRakutenClient(baseURL, applicationID string, timeout time.Duration) *RakutenClient {
	return &RakutenClient{
		base:          httpclient.NewBaseClient(baseURL, timeout),
		applicationID: applicationID,
	}
}

func (c *RakutenClient) Provider() string { return ProviderRakuten }

type rakutenResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Hotels           []struct {
		Hotel []struct {
			HotelBasicInfo *struct {
				HotelNo   json.Number `json:"hotelNo"`
				HotelName string      `json:"hotelName"`
				Address1  string      `json:"address1"`
				Address2  string      `json:"address2"`
				Latitude  float64     `json:"latitude"`
				Longitude float64     `json:"longitude"`
			} `json:"hotelBasicInfo"`
		} `json:"hotel"`
	} `json:"hotels"`
}

// SearchByKeyword 는 키워드로 숙소를 찾는다. 좌표는 datumType=1(세계 측지계, 도 단위)로 받는다.
func (c *RakutenClient) SearchByKeyword(ctx context.Context, q CatalogQuery) CatalogResult {
	const op = "rakuten.keywordHotelSearch"

	params := url.Values{}
	params.Set("applicationId", c.applicationID)
	params.Set("keyword", q.Keyword)
	params.Set("format", "json")
	params.Set("datumType", "1")
	params.Set("hits", "10")

	req, err := c.base.NewRequest(ctx, http.MethodGet, rakutenKeywordPath, params, nil)
	if err != nil {
		return errResult(apperrors.Wrap(apperrors.KindInvalid, op, err))
	}
	status, body, err := c.base.Do(req, 0)
	if err != nil {
		return errResult(apperrors.Wrap(apperrors.KindTransient, op, err))
	}

	var resp rakutenResponse
	decodeErr := json.Unmarshal(body, &resp)
	if resp.Error != "" {
		return errResult(apperrors.New(rakutenKind(resp.Error, status), op, status, resp.Error+": "+resp.ErrorDescription))
	}
	if status != http.StatusOK {
		return errResult(apperrors.New(apperrors.KindFromStatus(status), op, status, httpclient.Snippet(body)))
	}
	if decodeErr != nil {
		return errResult(apperrors.Wrap(apperrors.KindInvalid, op, fmt.Errorf("decode response: %w", decodeErr)))
	}

	var entries []CatalogEntry
	for _, h := range resp.Hotels {
		if len(h.Hotel) == 0 || h.Hotel[0].HotelBasicInfo == nil {
			continue
		}
		info := h.Hotel[0].HotelBasicInfo
		e := CatalogEntry{
			ID:      info.HotelNo.String(),
			Title:   info.HotelName,
			Address: info.Address1 + info.Address2,
		}
		if info.Latitude != 0 || info.Longitude != 0 {
			e.Coordinates = &models.Coordinates{Lat: info.Latitude, Lon: info.Longitude}
		}
		entries = append(entries, e)
	}
	return okResult(entries)
}

func rakutenKind(code string, status int) apperrors.Kind {
	switch code {
	case "not_found":
		return apperrors.KindNotFound
	case "too_many_requests":
		return apperrors.KindRateLimited
	case "wrong_parameter":
		return apperrors.KindInvalid
	}
	if status == http.StatusOK {
		return apperrors.KindTransient
	}
	return apperrors.KindFromStatus(status)
}
