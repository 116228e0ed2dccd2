package inventory

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/apperrors"
	"spot-letter/config"
	"spot-letter/geo"
	"spot-letter/keyword"
	"spot-letter/logger"
	"spot-letter/metrics"
	"spot-letter/models"
	"spot-letter/repositories"
	"spot-letter/scorer"
	"spot-letter/trace"
)

// Options 는 매칭 임계값과 검색 파라미터다.
type Options struct {
	Threshold     int
	RadiusMeters  float64
	MaxCandidates int
	MaxScored     int
	Language      string
	Currency      string
	PartySize     int
}

func OptionsFromConfig(cfg config.InventoryConfig) Options {
	return Options{
		Threshold:     cfg.ScoreThreshold,
		RadiusMeters:  cfg.RadiusMeters,
		MaxCandidates: cfg.MaxCandidates,
		MaxScored:     cfg.MaxScored,
		Language:      cfg.Language,
		Currency:      cfg.Currency,
		PartySize:     cfg.PartySize,
	}
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = scorer.DefaultThreshold
	}
	if o.RadiusMeters <= 0 {
		o.RadiusMeters = 100
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 5
	}
	if o.MaxScored <= 0 {
		o.MaxScored = 3
	}
	return o
}

// Ranker 는 scorer.Scorer 가 구현한다.
type Ranker interface {
	Score(ctx context.Context, target string, c scorer.Candidate) (scorer.Decision, error)
	Rank(ctx context.Context, target string, candidates []scorer.Candidate) (scorer.Decision, error)
}

// MappingStore 는 인벤토리 매핑 저장소다. FindMapping 은 없으면 (nil, nil) 을 반환한다.
// InsertMapping 은 (place, provider) 중복 시 repositories.ErrDuplicate 를 반환해야 한다.
type MappingStore interface {
	FindMapping(ctx context.Context, placeID primitive.ObjectID, provider string) (*models.InventoryMapping, error)
	InsertMapping(ctx context.Context, m *models.InventoryMapping) error
}

// Matcher 는 한 카탈로그 제공자에 대해 후보 장소의 인벤토리 항목을 찾는다.
type Matcher struct {
	catalog  Catalog
	keywords *keyword.Generator
	ranker   Ranker
	store    MappingStore
	opts     Options
}

func NewMatcher(catalog Catalog, keywords *keyword.Generator, ranker Ranker, store MappingStore, opts Options) *Matcher {
	if keywords == nil {
		keywords = keyword.NewGenerator(nil)
	}
	return &Matcher{
		catalog:  catalog,
		keywords: keywords,
		ranker:   ranker,
		store:    store,
		opts:     opts.withDefaults(),
	}
}

func (m *Matcher) Provider() string { return m.catalog.Provider() }

// Match 는 숙박 후보에 맞는 카탈로그 항목을 찾는다. 매칭이 없으면 (nil, nil) 이다.
// 에러는 검색 결과를 하나도 모으지 못한 채 rate limit 에 걸린 경우에만 반환한다.
func (m *Matcher) Match(ctx context.Context, c models.EnrichedCandidate) (*models.InventoryMapping, error) {
	provider := m.Provider()
	target := c.DisplayName()

	if !m.keywords.IsLodgingType(append([]string{c.PrimaryType}, c.Tags...)...) {
		metrics.InventoryMatches.WithLabelValues(provider, "skipped").Inc()
		return nil, nil
	}

	entries, err := m.collect(ctx, target, c.Coordinates)
	if len(entries) == 0 {
		if err != nil {
			metrics.InventoryMatches.WithLabelValues(provider, "rate_limited").Inc()
			return nil, err
		}
		metrics.InventoryMatches.WithLabelValues(provider, "no_results").Inc()
		return nil, nil
	}

	eligible := m.gate(c.Coordinates, entries)
	if len(eligible) == 0 {
		metrics.InventoryMatches.WithLabelValues(provider, "out_of_radius").Inc()
		return nil, nil
	}

	mapping := m.decide(ctx, target, c.Coordinates, eligible)
	if mapping == nil {
		metrics.InventoryMatches.WithLabelValues(provider, "rejected").Inc()
		return nil, nil
	}
	if mapping.Degraded {
		metrics.InventoryMatches.WithLabelValues(provider, "degraded").Inc()
	} else {
		metrics.InventoryMatches.WithLabelValues(provider, "accepted").Inc()
	}
	return mapping, nil
}

// Verify 는 이미 알려진 카탈로그 id 를 Match 와 같은 거리/점수 기준으로 다시 확인한다.
// 검색 결과에 그 id 가 없거나 기준을 넘지 못하면 (nil, nil) 이다.
func (m *Matcher) Verify(ctx context.Context, c models.EnrichedCandidate, externalID string) (*models.InventoryMapping, error) {
	provider := m.Provider()
	target := c.DisplayName()

	if !m.keywords.IsLodgingType(append([]string{c.PrimaryType}, c.Tags...)...) {
		metrics.InventoryMatches.WithLabelValues(provider, "skipped").Inc()
		return nil, nil
	}

	entries, err := m.collect(ctx, target, c.Coordinates)
	var entry *CatalogEntry
	for i := range entries {
		if entries[i].ID == externalID {
			entry = &entries[i]
			break
		}
	}
	if entry == nil {
		if err != nil {
			metrics.InventoryMatches.WithLabelValues(provider, "rate_limited").Inc()
			return nil, err
		}
		m.logStep(ctx, target, "preset catalog id not found in search results", logger.Fields{"external_id": externalID})
		metrics.InventoryMatches.WithLabelValues(provider, "unverified").Inc()
		return nil, nil
	}

	if len(m.gate(c.Coordinates, []CatalogEntry{*entry})) == 0 {
		metrics.InventoryMatches.WithLabelValues(provider, "out_of_radius").Inc()
		return nil, nil
	}

	d, err := m.ranker.Score(ctx, target, toScorerCandidate(*entry))
	if err != nil {
		m.logStep(ctx, target, "preset candidate scoring failed", logger.Fields{"external_id": externalID, "error": err.Error()})
		metrics.InventoryMatches.WithLabelValues(provider, "rejected").Inc()
		return nil, nil
	}
	if !d.Accepted(m.opts.Threshold) {
		metrics.InventoryMatches.WithLabelValues(provider, "rejected").Inc()
		return nil, nil
	}
	metrics.InventoryMatches.WithLabelValues(provider, "accepted").Inc()
	return m.mapping(c.Coordinates, *entry, &d.Score, false), nil
}

// collect 는 키워드 변형 순서대로 검색해 카탈로그 id 기준 중복 없이 최대 MaxCandidates 개를 모은다.
// 첫 검색이 결과를 내면 나머지 변형은 건너뛴다. rate limit 은 순회를 멈춘다.
func (m *Matcher) collect(ctx context.Context, target string, loc *models.Coordinates) ([]CatalogEntry, error) {
	var (
		entries []CatalogEntry
		seen    = map[string]struct{}{}
	)
	for i, kw := range m.keywords.Variations(target) {
		res := m.catalog.SearchByKeyword(ctx, CatalogQuery{
			Keyword:   kw,
			Location:  loc,
			Language:  m.opts.Language,
			Currency:  m.opts.Currency,
			PartySize: m.opts.PartySize,
		})
		switch res.Kind {
		case apperrors.KindOK:
		case apperrors.KindRateLimited:
			m.logStep(ctx, target, "catalog rate limited", logger.Fields{"keyword": kw})
			return entries, res.Err
		case apperrors.KindNotFound:
			continue
		default:
			m.logStep(ctx, target, "catalog search failed", logger.Fields{"keyword": kw, "kind": string(res.Kind), "error": errString(res.Err)})
			continue
		}

		for _, e := range res.Entries {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			entries = append(entries, e)
			if len(entries) >= m.opts.MaxCandidates {
				return entries, nil
			}
		}
		if i == 0 && len(entries) > 0 {
			return entries, nil
		}
	}
	return entries, nil
}

// gate 는 양쪽 좌표가 모두 있을 때 반경 밖 항목을 제외한다.
func (m *Matcher) gate(origin *models.Coordinates, entries []CatalogEntry) []CatalogEntry {
	if origin == nil {
		return entries
	}
	var out []CatalogEntry
	for _, e := range entries {
		if e.Coordinates == nil || geo.Within(*origin, *e.Coordinates, m.opts.RadiusMeters) {
			out = append(out, e)
		}
	}
	return out
}

func (m *Matcher) decide(ctx context.Context, target string, origin *models.Coordinates, eligible []CatalogEntry) *models.InventoryMapping {
	if len(eligible) == 1 {
		d, err := m.ranker.Score(ctx, target, toScorerCandidate(eligible[0]))
		if err != nil {
			m.logStep(ctx, target, "single candidate scoring failed", logger.Fields{"error": err.Error()})
			return nil
		}
		if !d.Accepted(m.opts.Threshold) {
			return nil
		}
		return m.mapping(origin, eligible[0], &d.Score, false)
	}

	if len(eligible) > m.opts.MaxScored {
		eligible = eligible[:m.opts.MaxScored]
	}
	cands := make([]scorer.Candidate, len(eligible))
	for i, e := range eligible {
		cands[i] = toScorerCandidate(e)
	}

	d, err := m.ranker.Rank(ctx, target, cands)
	if err != nil {
		m.logStep(ctx, target, "ranking unavailable, accepting first candidate unscored", logger.Fields{
			"external_id": eligible[0].ID,
			"error":       err.Error(),
		})
		return m.mapping(origin, eligible[0], nil, true)
	}
	if !d.Accepted(m.opts.Threshold) {
		return nil
	}
	return m.mapping(origin, eligible[d.Index], &d.Score, false)
}

func (m *Matcher) mapping(origin *models.Coordinates, e CatalogEntry, score *int, degraded bool) *models.InventoryMapping {
	mp := &models.InventoryMapping{
		Provider:   m.Provider(),
		ExternalID: e.ID,
		Title:      e.Title,
		Degraded:   degraded,
	}
	if score != nil {
		s := *score
		mp.Score = &s
	}
	if origin != nil && e.Coordinates != nil {
		d := geo.DistanceMeters(*origin, *e.Coordinates)
		mp.DistanceMeters = &d
	}
	return mp
}

// Attach 는 매핑을 장소에 연결한다. 이미 (place, provider) 매핑이 있으면 false 다.
func (m *Matcher) Attach(ctx context.Context, placeID primitive.ObjectID, mapping *models.InventoryMapping) (bool, error) {
	if mapping == nil {
		return false, nil
	}
	existing, err := m.store.FindMapping(ctx, placeID, mapping.Provider)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	mapping.PlaceID = placeID
	mapping.CreatedAt = time.Now()
	if err := m.store.InsertMapping(ctx, mapping); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Matcher) logStep(ctx context.Context, target, msg string, fields logger.Fields) {
	fields["job_id"] = trace.JobIDFromContext(ctx)
	fields["provider"] = m.Provider()
	fields["candidate"] = target
	logger.WarnWithFields(msg, fields)
}

func toScorerCandidate(e CatalogEntry) scorer.Candidate {
	return scorer.Candidate{ID: e.ID, Title: e.Title, Address: e.Address}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
