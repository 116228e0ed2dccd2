package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/apperrors"
	"spot-letter/keyword"
	"spot-letter/llm"
	"spot-letter/models"
	"spot-letter/repositories"
	"spot-letter/scorer"
)

// fakeCatalog 은 키워드별로 준비된 결과를 돌려주고 검색 순서를 기록한다.
type fakeCatalog struct {
	byKeyword map[string]CatalogResult
	queries   []string
}

func (f *fakeCatalog) Provider() string { return ProviderRakuten }

func (f *fakeCatalog) SearchByKeyword(_ context.Context, q CatalogQuery) CatalogResult {
	f.queries = append(f.queries, q.Keyword)
	if r, ok := f.byKeyword[q.Keyword]; ok {
		return r
	}
	return CatalogResult{Kind: apperrors.KindNotFound}
}

type memoryMappings struct {
	mu        sync.Mutex
	rows      []models.InventoryMapping
	findCalls int
	raceDup   bool
}

func (m *memoryMappings) FindMapping(_ context.Context, placeID primitive.ObjectID, provider string) (*models.InventoryMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	for _, r := range m.rows {
		if r.PlaceID == placeID && r.Provider == provider {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memoryMappings) InsertMapping(_ context.Context, mp *models.InventoryMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceDup {
		return repositories.ErrDuplicate
	}
	m.rows = append(m.rows, *mp)
	return nil
}

var origin = &models.Coordinates{Lat: 35.0, Lon: 135.0}

// 위도 1도 ≈ 111,195m.
func north(meters float64) *models.Coordinates {
	return &models.Coordinates{Lat: 35.0 + meters/111195.0, Lon: 135.0}
}

func hotelCandidate(name string) models.EnrichedCandidate {
	return models.EnrichedCandidate{
		CandidateName: models.CandidateName{Name: name},
		CanonicalName: name,
		Coordinates:   origin,
		Tags:          []string{"lodging", "point_of_interest"},
		PrimaryType:   "hotel",
	}
}

func ok(entries ...CatalogEntry) CatalogResult {
	return CatalogResult{Kind: apperrors.KindOK, Entries: entries}
}

func newMatcher(cat Catalog, client *llm.Scripted, store MappingStore) *Matcher {
	return NewMatcher(cat, keyword.NewGenerator(nil), scorer.New(client), store, Options{})
}

func TestMatchSkipsNonLodging(t *testing.T) {
	cat := &fakeCatalog{}
	client := llm.NewScripted()
	m := newMatcher(cat, client, &memoryMappings{})

	tower := models.EnrichedCandidate{
		CandidateName: models.CandidateName{Name: "Tokyo Tower"},
		CanonicalName: "東京タワー",
		Tags:          []string{"tourist_attraction", "point_of_interest"},
		PrimaryType:   "tourist_attraction",
	}
	got, err := m.Match(context.Background(), tower)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, cat.queries)
	assert.Empty(t, client.Requests)
}

func TestMatchGeoGateKeepsOnlyEntryWithinRadius(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(
			CatalogEntry{ID: "near", Title: "Kyoto Hotel", Coordinates: north(50)},
			CatalogEntry{ID: "far", Title: "Kyoto Hotel Annex", Coordinates: north(150)},
		),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"score": 90, "reason": "same"}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate("Kyoto Hotel"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "near", got.ExternalID)
	require.NotNil(t, got.DistanceMeters)
	assert.InDelta(t, 50, *got.DistanceMeters, 1)
	require.NotNil(t, got.Score)
	assert.Equal(t, 90, *got.Score)
	assert.NotContains(t, client.Requests[0].Prompt, "Annex")
}

func TestMatchGeoGateNearEntryBelowThresholdRejected(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(
			CatalogEntry{ID: "near", Title: "Kyoto Hotel", Coordinates: north(50)},
			CatalogEntry{ID: "far", Title: "Kyoto Hotel Annex", Coordinates: north(150)},
		),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"score": 40, "reason": "different"}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate("Kyoto Hotel"))
	require.NoError(t, err)
	assert.Nil(t, got, "far entry must not be picked when the near one is rejected")
	assert.Equal(t, 1, client.Calls("candidate_score"))
	assert.NotContains(t, client.Requests[0].Prompt, "Annex")
}

func TestVerifyAcceptsKnownIDWithinGate(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(
			CatalogEntry{ID: "a", Title: "Kyoto Hotel Okura", Coordinates: north(20)},
			CatalogEntry{ID: "b", Title: "Kyoto Hotel", Coordinates: north(30)},
		),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"score": 85}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Verify(context.Background(), hotelCandidate("Kyoto Hotel"), "b")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ExternalID)
	require.NotNil(t, got.Score)
	assert.Equal(t, 85, *got.Score)
	assert.Contains(t, client.Requests[0].Prompt, "Kyoto Hotel")
	assert.NotContains(t, client.Requests[0].Prompt, "Okura")
}

func TestVerifyRejectsUnknownFarOrLowScoredID(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(
			CatalogEntry{ID: "near", Title: "Kyoto Hotel", Coordinates: north(30)},
			CatalogEntry{ID: "far", Title: "Kyoto Hotel Annex", Coordinates: north(150)},
		),
	}}

	t.Run("unknown id", func(t *testing.T) {
		client := llm.NewScripted()
		got, err := newMatcher(cat, client, &memoryMappings{}).Verify(context.Background(), hotelCandidate("Kyoto Hotel"), "forged")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, client.Requests)
	})

	t.Run("outside radius", func(t *testing.T) {
		client := llm.NewScripted()
		got, err := newMatcher(cat, client, &memoryMappings{}).Verify(context.Background(), hotelCandidate("Kyoto Hotel"), "far")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Empty(t, client.Requests)
	})

	t.Run("below threshold", func(t *testing.T) {
		client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"score": 50}`})
		got, err := newMatcher(cat, client, &memoryMappings{}).Verify(context.Background(), hotelCandidate("Kyoto Hotel"), "near")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestMatchNothingWithinRadius(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(CatalogEntry{ID: "far", Title: "Kyoto Hotel", Coordinates: north(150)}),
	}}
	client := llm.NewScripted()
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate("Kyoto Hotel"))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, client.Requests)
}

func TestMatchSingleBelowThresholdRejected(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(CatalogEntry{ID: "h1", Title: "Kyoto Station Hotel", Coordinates: north(10)}),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"score": 69}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate("Kyoto Hotel"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchSingleScorerFailureRejected(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(CatalogEntry{ID: "h1", Title: "Kyoto Hotel", Coordinates: north(10)}),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: "not json"})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate("Kyoto Hotel"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMatchMultipleUsesNominatedBest(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(
			CatalogEntry{ID: "a", Title: "Kyoto Hotel Okura", Coordinates: north(20)},
			CatalogEntry{ID: "b", Title: "Kyoto Hotel", Coordinates: north(30)},
			CatalogEntry{ID: "c", Title: "Hotel Kyoto", Coordinates: north(40)},
			CatalogEntry{ID: "d", Title: "Kyoto Hotel Plus", Coordinates: north(45)},
		),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"best_index": 1, "score": 88}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate("Kyoto Hotel"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.ExternalID)
	assert.False(t, got.Degraded)
	assert.Equal(t, 1, client.Calls("candidate_score"))
	assert.NotContains(t, client.Requests[0].Prompt, "Kyoto Hotel Plus", "at most three entries are scored")
}

func TestMatchMultipleUnparseableAcceptsFirstDegraded(t *testing.T) {
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"Kyoto Hotel": ok(
			CatalogEntry{ID: "a", Title: "Kyoto Hotel", Coordinates: north(20)},
			CatalogEntry{ID: "b", Title: "Kyoto Hotel 2", Coordinates: north(30)},
		),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: "I think the second one"})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate("Kyoto Hotel"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ExternalID)
	assert.True(t, got.Degraded)
	assert.Nil(t, got.Score)
}

func TestMatchFirstSearchSuccessSkipsVariations(t *testing.T) {
	name := "東京リゾートホテル（本館）"
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		name: ok(CatalogEntry{ID: "h1", Title: "東京リゾートホテル"}),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"score": 95}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate(name))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{name}, cat.queries)
	assert.Nil(t, got.DistanceMeters, "entry has no coordinates")
}

func TestMatchCascadesAndDedupsByID(t *testing.T) {
	name := "東京リゾートホテル（本館）"
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		"東京リゾートホテル":      ok(CatalogEntry{ID: "h1", Title: "東京リゾートホテル", Coordinates: north(5)}),
		"東京リゾートホテル(本館)": ok(CatalogEntry{ID: "h1", Title: "東京リゾートホテル", Coordinates: north(5)}),
		"リゾートホテル":        ok(CatalogEntry{ID: "h2", Title: "リゾートホテル東京", Coordinates: north(60)}),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"best_index": 0, "score": 80}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate(name))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h1", got.ExternalID)
	assert.Equal(t, keyword.Variations(name), cat.queries)
	assert.Contains(t, client.Requests[0].Prompt, "リゾートホテル東京")
}

func TestMatchRateLimitStopsCascade(t *testing.T) {
	name := "東京リゾートホテル（本館）"
	limited := apperrors.RateLimit("rakuten.keywordHotelSearch", 429, "too_many_requests")
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		name: {Kind: apperrors.KindRateLimited, Err: limited},
	}}
	m := newMatcher(cat, llm.NewScripted(), &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate(name))
	assert.Nil(t, got)
	assert.True(t, apperrors.IsRateLimit(err))
	assert.Len(t, cat.queries, 1)
}

func TestMatchTransientFailureTriesNextVariation(t *testing.T) {
	name := "東京リゾートホテル（本館）"
	cat := &fakeCatalog{byKeyword: map[string]CatalogResult{
		name:        {Kind: apperrors.KindTransient, Err: errors.New("timeout")},
		"東京リゾートホテル": ok(CatalogEntry{ID: "h1", Title: "東京リゾートホテル", Coordinates: north(5)}),
	}}
	client := llm.NewScripted().On("candidate_score", llm.ScriptedReply{Text: `{"score": 75}`})
	m := newMatcher(cat, client, &memoryMappings{})

	got, err := m.Match(context.Background(), hotelCandidate(name))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "h1", got.ExternalID)
	assert.Greater(t, len(cat.queries), 2)
}

func TestAttachIsIdempotent(t *testing.T) {
	store := &memoryMappings{}
	m := newMatcher(&fakeCatalog{}, llm.NewScripted(), store)
	placeID := primitive.NewObjectID()

	created, err := m.Attach(context.Background(), placeID, &models.InventoryMapping{Provider: ProviderRakuten, ExternalID: "h1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.Attach(context.Background(), placeID, &models.InventoryMapping{Provider: ProviderRakuten, ExternalID: "h1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, store.rows, 1)
	assert.Equal(t, placeID, store.rows[0].PlaceID)
	assert.False(t, store.rows[0].CreatedAt.IsZero())
}

func TestAttachTreatsDuplicateKeyAsPresent(t *testing.T) {
	store := &memoryMappings{raceDup: true}
	m := newMatcher(&fakeCatalog{}, llm.NewScripted(), store)

	created, err := m.Attach(context.Background(), primitive.NewObjectID(), &models.InventoryMapping{Provider: ProviderRakuten, ExternalID: "h1"})
	require.NoError(t, err)
	assert.False(t, created)
}
