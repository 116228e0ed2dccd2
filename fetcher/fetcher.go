// Package fetcher 는 콘텐츠 소스의 게시물을 기간 단위로 페이지 순회한다.
package fetcher

import (
	"context"
	"fmt"
	"iter"
	"sync/atomic"
	"time"

	"spot-letter/apperrors"
	"spot-letter/logger"
	"spot-letter/models"
	"spot-letter/trace"
)

// ListRequest 는 소스 클라이언트에 대한 한 페이지 요청이다.
type ListRequest struct {
	Token      string
	AccountRef string
	Cursor     string
	Limit      int
	Fields     []string
}

// Page 는 한 페이지 응답이다. NextCursor 가 비면 마지막 페이지다.
type Page struct {
	Posts      []models.RawPost
	NextCursor string
}

// Source 는 콘텐츠 소스 API 클라이언트다.
// 실패는 apperrors 의 auth / rate_limited / transient 로 분류해 반환해야 한다.
type Source interface {
	ListPosts(ctx context.Context, req ListRequest) (*Page, error)
}

// Fetcher 는 계정 provider 별 Source 를 골라 게시물을 가져온다.
type Fetcher struct {
	sources  map[string]Source
	pageSize int
	fields   []string
}

func New(pageSize int, fields []string) *Fetcher {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Fetcher{
		sources:  make(map[string]Source),
		pageSize: pageSize,
		fields:   fields,
	}
}

// Register 는 provider 이름에 Source 를 연결한다.
func (f *Fetcher) Register(provider string, s Source) *Fetcher {
	f.sources[provider] = s
	return f
}

// Fetch 는 [start, end] 구간 게시물을 지연 순회하는 Stream 을 만든다.
// 네트워크 호출은 Posts 를 순회할 때 일어난다.
func (f *Fetcher) Fetch(ctx context.Context, account models.ConnectedAccount, start, end time.Time) *Stream {
	return &Stream{
		ctx:     ctx,
		source:  f.sources[account.Provider],
		account: account,
		window:  models.TimeWindow{Start: start, End: end},
		limit:   f.pageSize,
		fields:  f.fields,
	}
}

// Stream 은 한 번만 순회할 수 있는 게시물 시퀀스다.
type Stream struct {
	ctx     context.Context
	source  Source
	account models.ConnectedAccount
	window  models.TimeWindow
	limit   int
	fields  []string

	started atomic.Bool
	pages   int
}

// Pages 는 지금까지 요청한 페이지 수다.
func (s *Stream) Pages() int { return s.pages }

// Posts 는 구간 안의 게시물을 순서대로 내보낸다. 에러가 나면 (zero, err) 를 한 번 내보내고 끝난다.
// 이미 시작된 스트림을 다시 순회하면 아무것도 내보내지 않는다.
func (s *Stream) Posts() iter.Seq2[models.RawPost, error] {
	return func(yield func(models.RawPost, error) bool) {
		if !s.started.CompareAndSwap(false, true) {
			return
		}
		if s.source == nil {
			yield(models.RawPost{}, apperrors.New(apperrors.KindInvalid, "fetcher.fetch", 0,
				fmt.Sprintf("unsupported account provider %q", s.account.Provider)))
			return
		}

		cursor := ""
		for {
			if err := s.ctx.Err(); err != nil {
				yield(models.RawPost{}, apperrors.Wrap(apperrors.KindTransient, "fetcher.fetch", err))
				return
			}

			page, err := s.source.ListPosts(s.ctx, ListRequest{
				Token:      s.account.AccessToken,
				AccountRef: s.account.AccountRef,
				Cursor:     cursor,
				Limit:      s.limit,
				Fields:     s.fields,
			})
			s.pages++
			if err != nil {
				yield(models.RawPost{}, err)
				return
			}

			for _, p := range page.Posts {
				if !s.window.Contains(p.Timestamp) {
					continue
				}
				if !yield(p, nil) {
					return
				}
			}

			if page.NextCursor == "" || s.pastWindow(page.Posts) {
				logger.DebugWithFields("fetch finished", logger.Fields{
					"job_id":   trace.JobIDFromContext(s.ctx),
					"provider": s.account.Provider,
					"pages":    s.pages,
				})
				return
			}
			cursor = page.NextCursor
		}
	}
}

// pastWindow 는 페이지의 가장 오래된 게시물이 구간 시작보다 이전인지 검사한다.
// 빈 페이지도 더 진행할 근거가 없으므로 true 다.
func (s *Stream) pastWindow(posts []models.RawPost) bool {
	if len(posts) == 0 {
		return true
	}
	oldest := posts[0].Timestamp
	for _, p := range posts[1:] {
		if p.Timestamp.Before(oldest) {
			oldest = p.Timestamp
		}
	}
	return oldest.Before(s.window.Start)
}

// Collect 는 스트림 전체를 슬라이스로 모은다. 첫 에러에서 멈춘다.
func (s *Stream) Collect() ([]models.RawPost, error) {
	var out []models.RawPost
	for p, err := range s.Posts() {
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
