package fetcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-letter/apperrors"
	"spot-letter/models"
)

type pagedSource struct {
	pages   map[string]*Page
	errAt   string
	err     error
	cursors []string
}

func (s *pagedSource) ListPosts(_ context.Context, req ListRequest) (*Page, error) {
	s.cursors = append(s.cursors, req.Cursor)
	if s.err != nil && req.Cursor == s.errAt {
		return nil, s.err
	}
	p, ok := s.pages[req.Cursor]
	if !ok {
		return &Page{}, nil
	}
	return p, nil
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC)
}

func post(id string, d int) models.RawPost {
	return models.RawPost{ExternalID: id, Timestamp: day(d)}
}

var igAccount = models.ConnectedAccount{
	UserID:      "u1",
	Provider:    models.AccountProviderInstagram,
	AccountRef:  "1784",
	AccessToken: "token",
}

func ids(posts []models.RawPost) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ExternalID)
	}
	return out
}

func TestFetchFiltersWindowAndStopsAtOlderPage(t *testing.T) {
	src := &pagedSource{pages: map[string]*Page{
		"":   {Posts: []models.RawPost{post("a", 20), post("b", 15)}, NextCursor: "c1"},
		"c1": {Posts: []models.RawPost{post("c", 12), post("d", 8)}, NextCursor: "c2"},
		"c2": {Posts: []models.RawPost{post("e", 5)}, NextCursor: "c3"},
	}}
	f := New(2, nil).Register(models.AccountProviderInstagram, src)

	got, err := f.Fetch(context.Background(), igAccount, day(10), day(15)).Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(got))
	// c1 페이지의 가장 오래된 게시물(8일)이 시작(10일)보다 이전이므로 c2 는 요청하지 않는다.
	assert.Equal(t, []string{"", "c1"}, src.cursors)
}

func TestFetchWindowBoundsAreInclusive(t *testing.T) {
	src := &pagedSource{pages: map[string]*Page{
		"": {Posts: []models.RawPost{post("end", 15), post("start", 10)}},
	}}
	f := New(50, nil).Register(models.AccountProviderInstagram, src)

	got, err := f.Fetch(context.Background(), igAccount, day(10), day(15)).Collect()
	require.NoError(t, err)
	assert.Equal(t, []string{"end", "start"}, ids(got))
}

func TestFetchStopsWithoutCursor(t *testing.T) {
	src := &pagedSource{pages: map[string]*Page{
		"": {Posts: []models.RawPost{post("a", 12)}},
	}}
	f := New(50, nil).Register(models.AccountProviderInstagram, src)

	stream := f.Fetch(context.Background(), igAccount, day(1), day(30))
	_, err := stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, 1, stream.Pages())
}

func TestFetchPropagatesClassifiedError(t *testing.T) {
	src := &pagedSource{
		pages: map[string]*Page{"": {Posts: []models.RawPost{post("a", 12)}, NextCursor: "c1"}},
		errAt: "c1",
		err:   apperrors.RateLimit("graph.listPosts", 4, "Application request limit reached"),
	}
	f := New(50, nil).Register(models.AccountProviderInstagram, src)

	_, err := f.Fetch(context.Background(), igAccount, day(1), day(30)).Collect()
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimit(err))
}

func TestStreamIsNotRestartable(t *testing.T) {
	src := &pagedSource{pages: map[string]*Page{
		"": {Posts: []models.RawPost{post("a", 12), post("b", 11)}},
	}}
	f := New(50, nil).Register(models.AccountProviderInstagram, src)
	stream := f.Fetch(context.Background(), igAccount, day(1), day(30))

	for range stream.Posts() {
		break
	}
	again, err := stream.Collect()
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, src.cursors, 1)
}

func TestFetchUnknownProvider(t *testing.T) {
	f := New(50, nil)
	_, err := f.Fetch(context.Background(), models.ConnectedAccount{Provider: "tiktok"}, day(1), day(2)).Collect()
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalid, apperrors.KindOf(err))
}

func TestFetchIsLazy(t *testing.T) {
	src := &pagedSource{}
	f := New(50, nil).Register(models.AccountProviderInstagram, src)

	_ = f.Fetch(context.Background(), igAccount, day(1), day(2))
	assert.Empty(t, src.cursors)
}
