package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"spot-letter/apperrors"
	"spot-letter/httpclient"
	"spot-letter/models"
)

// BookingClient 는 독립 숙박 인벤토리 제공자의 호텔 검색 클라이언트다.
type BookingClient struct {
	base   *httpclient.BaseClient
	apiKey string
}

func NewBookingClient(baseURL, apiKey string, timeout time.Duration) *BookingClient {
	return &BookingClient{
		base:   httpclient.NewBaseClient(baseURL, timeout),
		apiKey: apiKey,
	}
}

func (c *BookingClient) Provider() string { return ProviderBooking }

type bookingResponse struct {
	Result []struct {
		HotelID   json.Number `json:"hotel_id"`
		Name      string      `json:"name"`
		Address   string      `json:"address"`
		Latitude  *float64    `json:"latitude"`
		Longitude *float64    `json:"longitude"`
	} `json:"result"`
	Message string `json:"message"`
}

// SearchByKeyword 는 키워드와 (있으면) 좌표로 호텔을 찾는다.
func (c *BookingClient) SearchByKeyword(ctx context.Context, q CatalogQuery) CatalogResult {
	const op = "booking.searchHotels"

	params := url.Values{}
	params.Set("query", q.Keyword)
	if q.Location != nil {
		params.Set("latitude", strconv.FormatFloat(q.Location.Lat, 'f', 6, 64))
		params.Set("longitude", strconv.FormatFloat(q.Location.Lon, 'f', 6, 64))
	}
	if q.Language != "" {
		params.Set("locale", q.Language)
	}
	if q.Currency != "" {
		params.Set("currency", q.Currency)
	}
	if q.PartySize > 0 {
		params.Set("adults", strconv.Itoa(q.PartySize))
	}

	req, err := c.base.NewRequest(ctx, http.MethodGet, "/v1/hotels/search", params, nil)
	if err != nil {
		return errResult(apperrors.Wrap(apperrors.KindInvalid, op, err))
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	status, body, err := c.base.Do(req, 0)
	if err != nil {
		return errResult(apperrors.Wrap(apperrors.KindTransient, op, err))
	}
	if status != http.StatusOK {
		return errResult(apperrors.New(apperrors.KindFromStatus(status), op, status, httpclient.Snippet(body)))
	}

	var resp bookingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return errResult(apperrors.Wrap(apperrors.KindInvalid, op, fmt.Errorf("decode response: %w", err)))
	}

	entries := make([]CatalogEntry, 0, len(resp.Result))
	for _, h := range resp.Result {
		e := CatalogEntry{ID: h.HotelID.String(), Title: h.Name, Address: h.Address}
		if h.Latitude != nil && h.Longitude != nil {
			e.Coordinates = &models.Coordinates{Lat: *h.Latitude, Lon: *h.Longitude}
		}
		entries = append(entries, e)
	}
	return okResult(entries)
}
