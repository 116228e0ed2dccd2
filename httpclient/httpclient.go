package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"spot-letter/logger"
	"spot-letter/trace"
)

// Config 는 HTTP 클라이언트 공통 설정이다.
type Config struct {
	Timeout time.Duration
}

// sensitiveParams 는 로그에 남기지 않는 쿼리 파라미터다.
var sensitiveParams = []string{"access_token", "key", "applicationId", "api_key"}

// loggingRoundTripper 는 모든 아웃바운드 호출에 공통 로깅과 추적 헤더를 붙인다.
type loggingRoundTripper struct {
	inner http.RoundTripper
}

func (l *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx := req.Context()
	traceID, spanID := trace.NextSpanID(ctx)
	req.Header.Set("X-Request-Id", traceID)
	req.Header.Set("X-Span-Id", spanID)

	var bodySnippet string
	if req.Body != nil {
		if bodyBytes, err := io.ReadAll(req.Body); err == nil {
			const maxBodyLog = 1024
			if len(bodyBytes) > maxBodyLog {
				bodySnippet = string(bodyBytes[:maxBodyLog])
			} else {
				bodySnippet = string(bodyBytes)
			}
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}
	}

	fields := logger.Fields{
		"method":     req.Method,
		"url":        redactedURL(req.URL),
		"request_id": traceID,
		"span_id":    spanID,
	}
	if jobID := trace.JobIDFromContext(ctx); jobID != "" {
		fields["job_id"] = jobID
	}
	if bodySnippet != "" {
		fields["body"] = bodySnippet
	}

	resp, err := l.inner.RoundTrip(req)
	fields["duration"] = time.Since(start).String()
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorWithFields("httpclient request failed", fields)
		return nil, err
	}

	fields["status"] = resp.StatusCode
	logger.DebugWithFields("httpclient request success", fields)
	return resp, nil
}

func redactedURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	q := clone.Query()
	for _, k := range sensitiveParams {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	clone.RawQuery = q.Encode()
	return clone.String()
}

// BaseClient 는 공통 HTTP 클라이언트와 baseURL 을 묶어 URL/요청 생성을 돕는다.
type BaseClient struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewBaseClient 는 주어진 타임아웃의 로깅 클라이언트로 BaseClient 를 만든다.
func NewBaseClient(baseURL string, timeout time.Duration) *BaseClient {
	return &BaseClient{
		HTTPClient: New(Config{Timeout: timeout}),
		BaseURL:    baseURL,
	}
}

// NewBaseClientWithClient 는 이미 생성된 http.Client 를 사용한다. nil 이면 기본 클라이언트다.
func NewBaseClientWithClient(httpClient *http.Client, baseURL string) *BaseClient {
	if httpClient == nil {
		httpClient = NewDefault()
	}
	return &BaseClient{
		HTTPClient: httpClient,
		BaseURL:    baseURL,
	}
}

// NewRequest 는 baseURL, 상대 경로, 쿼리, 바디로 요청을 만든다.
// relPath 에 쿼리(?)가 있으면 path.Join 이 손상시키므로 에러를 반환한다.
func (c *BaseClient) NewRequest(ctx context.Context, method, relPath string, query url.Values, body io.Reader) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.Contains(relPath, "?") {
		return nil, fmt.Errorf("httpclient: relPath must not contain query string (use query parameter instead): %s", relPath)
	}
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, err
	}
	if relPath != "" {
		base.Path = path.Join(base.Path, relPath)
	}
	if query != nil {
		base.RawQuery = query.Encode()
	}
	return http.NewRequestWithContext(ctx, method, base.String(), body)
}

// Do 는 내부 HTTP 클라이언트로 요청을 실행하고 본문을 최대 limit 바이트까지 읽는다.
func (c *BaseClient) Do(req *http.Request, limit int64) (int, []byte, error) {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if limit <= 0 {
		limit = 4 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// Snippet 은 에러 메시지에 넣을 본문 앞부분을 반환한다.
func Snippet(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max])
	}
	return string(body)
}

// New 는 주어진 설정으로 http.Client 를 만든다. Timeout 이 0 이면 10초다.
func New(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &loggingRoundTripper{inner: http.DefaultTransport},
	}
}

// NewDefault 는 Timeout 10초의 기본 클라이언트다.
func NewDefault() *http.Client {
	return New(Config{})
}
