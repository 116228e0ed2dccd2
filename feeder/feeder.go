package feeder

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"spot-letter/apperrors"
	"spot-letter/fetcher"
	"spot-letter/httpclient"
	"spot-letter/models"
)

const mediaTypeArticle = "ARTICLE"

// Client 는 RSS/Atom 피드를 게시물 소스로 쓴다. AccountRef 가 피드 URL 이다.
// 피드는 한 페이지뿐이라 커서를 돌려주지 않는다.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	return &Client{
		httpClient: httpclient.New(httpclient.Config{Timeout: timeout}),
		userAgent:  userAgent,
	}
}

// ListPosts 는 피드 항목을 게시물로 변환한다. Limit 이 0 보다 크면 앞에서부터 자른다.
func (c *Client) ListPosts(ctx context.Context, req fetcher.ListRequest) (*fetcher.Page, error) {
	const op = "feeder.listPosts"

	fp := gofeed.NewParser()
	fp.Client = c.httpClient
	if c.userAgent != "" {
		fp.UserAgent = c.userAgent
	}

	feed, err := fp.ParseURLWithContext(req.AccountRef, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, apperrors.New(feedKind(httpErr.StatusCode), op, httpErr.StatusCode, httpErr.Status)
		}
		return nil, apperrors.Wrap(apperrors.KindTransient, op, err)
	}

	page := &fetcher.Page{}
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		} else {
			continue
		}

		id := item.GUID
		if id == "" {
			id = item.Link
		}
		page.Posts = append(page.Posts, models.RawPost{
			ExternalID: id,
			Caption:    caption(item),
			MediaType:  mediaTypeArticle,
			MediaURL:   mediaURL(item),
			Permalink:  item.Link,
			Timestamp:  published,
		})
	}

	if req.Limit > 0 && len(page.Posts) > req.Limit {
		page.Posts = page.Posts[:req.Limit]
	}
	return page, nil
}

// feedKind 는 피드 서버의 상태 코드를 분류한다. 401/403 과 429 외에는 일시적 실패로 본다.
func feedKind(status int) apperrors.Kind {
	switch k := apperrors.KindFromStatus(status); k {
	case apperrors.KindAuth, apperrors.KindRateLimited:
		return k
	default:
		return apperrors.KindTransient
	}
}

func caption(item *gofeed.Item) string {
	body := item.Description
	if body == "" {
		body = item.Content
	}
	text := HTMLToText(body)
	title := strings.TrimSpace(item.Title)
	switch {
	case title == "":
		return text
	case text == "":
		return title
	default:
		return title + "\n" + text
	}
}

func mediaURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// HTMLToText 는 HTML 조각을 공백 하나로 이어 붙인 텍스트로 바꾼다.
// 파싱에 실패하면 원문을 그대로 돌려준다.
func HTMLToText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
