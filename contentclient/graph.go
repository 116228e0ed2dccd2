// Package contentclient 는 Instagram Graph API 게시물 목록 클라이언트다.
package contentclient

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
	"spot-letter/fetcher"
	"spot-letter/httpclient"
	"spot-letter/logger"
	"spot-letter/models"
)

const (
	codeInvalidToken   = 190
	codeAppRateLimit   = 4
	codeUserRateLimit  = 17
	graphTimeLayout    = "2006-01-02T15:04:05-0700"
	defaultGraphFields = "id,caption,media_type,media_url,permalink,timestamp"
)

// GraphClient 는 /{account}/media 를 커서 단위로 조회한다.
type GraphClient struct {
	base *httpclient.BaseClient
}

func NewGraphClient(baseURL string, timeout time.Duration) *GraphClient {
	return &GraphClient{base: httpclient.NewBaseClient(baseURL, timeout)}
}

type mediaResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Caption   string `json:"caption"`
		MediaType string `json:"media_type"`
		MediaURL  string `json:"media_url"`
		Permalink string `json:"permalink"`
		Timestamp string `json:"timestamp"`
		Location  *struct {
			Name string `json:"name"`
		} `json:"location"`
	} `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// ListPosts 는 한 페이지를 가져온다. paging.next 가 없으면 NextCursor 는 비어 있다.
func (c *GraphClient) ListPosts(ctx context.Context, req fetcher.ListRequest) (*fetcher.Page, error) {
	const op = "graph.listPosts"

	q := url.Values{}
	fields := defaultGraphFields
	if len(req.Fields) > 0 {
		fields = strings.Join(req.Fields, ",")
	}
	q.Set("fields", fields)
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Cursor != "" {
		q.Set("after", req.Cursor)
	}
	q.Set("access_token", req.Token)

	account := req.AccountRef
	if account == "" {
		account = "me"
	}
	httpReq, err := c.base.NewRequest(ctx, http.MethodGet, "/"+account+"/media", q, nil)
	if err != nil {
		return nil, err
	}

	status, body, err := c.base.Do(httpReq, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, op, err)
	}
	if status != http.StatusOK {
		return nil, classify(op, status, body)
	}

	var resp mediaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransient, op, fmt.Errorf("decode response: %w", err))
	}

	page := &fetcher.Page{Posts: make([]models.RawPost, 0, len(resp.Data))}
	for _, m := range resp.Data {
		ts, err := parseTimestamp(m.Timestamp)
		if err != nil {
			logger.WarnWithFields("skip media with bad timestamp", logger.Fields{"media_id": m.ID, "timestamp": m.Timestamp})
			continue
		}
		p := models.RawPost{
			ExternalID: m.ID,
			Caption:    m.Caption,
			MediaType:  m.MediaType,
			MediaURL:   m.MediaURL,
			Permalink:  m.Permalink,
			Timestamp:  ts,
		}
		if m.Location != nil {
			p.LocationName = strings.TrimSpace(m.Location.Name)
		}
		page.Posts = append(page.Posts, p)
	}
	if resp.Paging.Next != "" {
		page.NextCursor = resp.Paging.Cursors.After
	}
	return page, nil
}

// classify 는 Graph API 에러 코드를 apperrors 로 매핑한다.
func classify(op string, status int, body []byte) error {
	var ge graphError
	if err := json.Unmarshal(body, &ge); err != nil || ge.Error.Code == 0 {
		return apperrors.Transient(op, status, httpclient.Snippet(body))
	}
	switch ge.Error.Code {
	case codeInvalidToken:
		return apperrors.Auth(op, ge.Error.Code, ge.Error.Message)
	case codeAppRateLimit, codeUserRateLimit:
		return apperrors.RateLimit(op, ge.Error.Code, ge.Error.Message)
	default:
		return apperrors.Transient(op, ge.Error.Code, ge.Error.Message)
	}
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
