package contentclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spot-letter/apperrors"
	"spot-letter/fetcher"
	"spot-letter/models"
)

func TestListPostsParsesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/1784/media", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "cur0", r.URL.Query().Get("after"))
		assert.Equal(t, "id,caption,timestamp", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{
			"data":[
				{"id":"m1","caption":"箱根の旅","media_type":"IMAGE","permalink":"https://instagram.com/p/1","timestamp":"2024-03-10T09:30:00+0000","location":{"name":" 箱根湯本 "}},
				{"id":"m2","caption":"x","media_type":"VIDEO","timestamp":"not-a-time"}
			],
			"paging":{"cursors":{"before":"b","after":"cur1"},"next":"https://graph.instagram.com/next"}
		}`))
	}))
	defer srv.Close()

	c := NewGraphClient(srv.URL+"/v21.0", time.Second)
	page, err := c.ListPosts(context.Background(), fetcher.ListRequest{
		Token:      "tok",
		AccountRef: "1784",
		Cursor:     "cur0",
		Limit:      25,
		Fields:     []string{"id", "caption", "timestamp"},
	})
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "m1", page.Posts[0].ExternalID)
	assert.Equal(t, "箱根湯本", page.Posts[0].LocationName)
	assert.True(t, page.Posts[0].Timestamp.Equal(time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "cur1", page.NextCursor)
}

func TestListPostsLastPageHasNoCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[],"paging":{"cursors":{"after":"dangling"}}}`))
	}))
	defer srv.Close()

	page, err := NewGraphClient(srv.URL, time.Second).ListPosts(context.Background(), fetcher.ListRequest{Token: "t"})
	require.NoError(t, err)
	assert.Empty(t, page.NextCursor)
}

func TestListPostsClassifiesErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind apperrors.Kind
	}{
		{"expired token", `{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`, apperrors.KindAuth},
		{"app limit", `{"error":{"message":"Application request limit reached","code":4}}`, apperrors.KindRateLimited},
		{"user limit", `{"error":{"message":"User request limit reached","code":17}}`, apperrors.KindRateLimited},
		{"other", `{"error":{"message":"Unknown","code":2}}`, apperrors.KindTransient},
		{"no body", `bad gateway`, apperrors.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGraphClient(srv.URL, time.Second).ListPosts(context.Background(), fetcher.ListRequest{Token: "t"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}
}

func TestGraphClientDrivesFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "" {
			_, _ = w.Write([]byte(`{"data":[{"id":"a","timestamp":"2024-03-12T00:00:00+0000"}],"paging":{"cursors":{"after":"c1"},"next":"n"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"b","timestamp":"2024-03-01T00:00:00+0000"}],"paging":{"cursors":{"after":"c2"},"next":"n"}}`))
	}))
	defer srv.Close()

	f := fetcher.New(10, nil).Register(models.AccountProviderInstagram, NewGraphClient(srv.URL, time.Second))
	account := models.ConnectedAccount{Provider: models.AccountProviderInstagram, AccountRef: "me", AccessToken: "t"}
	posts, err := f.Fetch(context.Background(), account,
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)).Collect()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "a", posts[0].ExternalID)
}
