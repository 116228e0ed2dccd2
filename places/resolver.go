package places

import (
	"context"
	"strings"

	"spot-letter/config"
	"spot-letter/geo"
	"spot-letter/logger"
	"spot-letter/metrics"
	"spot-letter/models"
	"spot-letter/trace"
)

const (
	stagePrimary    = "primary"
	stageComponents = "components"
	stageSecondary  = "secondary"
	stageReverse    = "reverse"
)

// Options 는 해석 단계의 로캘/요약 설정이다.
type Options struct {
	DefaultLanguage    string
	DefaultRegion      string
	DefaultCountry     string
	Separator          string
	NearbyRadiusMeters float64
}

// OptionsFromConfig 는 config.PlacesConfig 에서 Options 를 만든다.
func OptionsFromConfig(cfg config.PlacesConfig) Options {
	return Options{
		DefaultLanguage:    cfg.DefaultLanguage,
		DefaultRegion:      cfg.DefaultRegion,
		DefaultCountry:     cfg.DefaultCountry,
		Separator:          cfg.Separator,
		NearbyRadiusMeters: cfg.NearbyRadiusMeters,
	}
}

// Resolver 는 후보 이름을 장소로 해석한다.
// 1차 검색 → 주소 구성 요소 요약 → 기본 로캘 재검색 → 역지오코딩 순으로 진행한다.
type Resolver struct {
	search  SearchClient
	reverse ReverseGeocoder
	cache   Cache
	opts    Options
}

// New 는 Resolver 를 만든다. reverse 와 cache 는 nil 일 수 있다.
func New(search SearchClient, reverse ReverseGeocoder, cache Cache, opts Options) *Resolver {
	if opts.NearbyRadiusMeters <= 0 {
		opts.NearbyRadiusMeters = 500
	}
	return &Resolver{search: search, reverse: reverse, cache: cache, opts: opts}
}

// Resolve 는 후보를 보강한다. 1차 검색에서 장소를 찾지 못하면 false 다.
func (r *Resolver) Resolve(ctx context.Context, candidate models.CandidateName) (*models.EnrichedCandidate, bool) {
	key := cacheKey(candidate.Name)
	if key == "" {
		return nil, false
	}
	if r.cache != nil {
		if hit, ok := r.cache.Get(ctx, key); ok {
			return hit.Apply(candidate), true
		}
	}

	results, err := r.search.SearchText(ctx, candidate.Name, "", "")
	if err != nil {
		r.logStage(ctx, candidate.Name, stagePrimary, err)
		metrics.ResolveStage.WithLabelValues(stagePrimary, "error").Inc()
		return nil, false
	}
	if len(results) == 0 {
		metrics.ResolveStage.WithLabelValues(stagePrimary, "miss").Inc()
		return nil, false
	}
	metrics.ResolveStage.WithLabelValues(stagePrimary, "hit").Inc()

	top := results[0]
	res := Resolution{
		CanonicalName:    top.Name,
		FormattedAddress: top.Address,
		Coordinates:      top.Coordinates,
		Tags:             top.Tags,
		PrimaryType:      top.PrimaryType,
		ExternalPlaceID:  top.ExternalID,
	}

	res.SummaryLocation = SummaryFromComponents(top.AddressComponents, r.opts.DefaultCountry, r.opts.Separator)
	if res.SummaryLocation != "" {
		metrics.ResolveStage.WithLabelValues(stageComponents, "hit").Inc()
	} else {
		metrics.ResolveStage.WithLabelValues(stageComponents, "miss").Inc()
		res.SummaryLocation = r.fallbackSummary(ctx, candidate.Name, top.Coordinates)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, res); err != nil {
			logger.WarnWithFields("place cache write failed", logger.Fields{
				"job_id":    trace.JobIDFromContext(ctx),
				"candidate": candidate.Name,
				"error":     err.Error(),
			})
		}
	}
	return res.Apply(candidate), true
}

// BackfillSummary 는 요약이 비어 있는 후보에 대해 재검색과 역지오코딩을 다시 시도한다.
// 요약을 채웠으면 true 다.
func (r *Resolver) BackfillSummary(ctx context.Context, c *models.EnrichedCandidate) bool {
	if c == nil || c.SummaryLocation != "" {
		return false
	}
	summary := r.fallbackSummary(ctx, c.DisplayName(), c.Coordinates)
	if summary == "" {
		return false
	}
	c.SummaryLocation = summary
	return true
}

func (r *Resolver) fallbackSummary(ctx context.Context, name string, coords *models.Coordinates) string {
	if s := r.secondarySummary(ctx, name, coords); s != "" {
		metrics.ResolveStage.WithLabelValues(stageSecondary, "hit").Inc()
		return s
	}
	metrics.ResolveStage.WithLabelValues(stageSecondary, "miss").Inc()

	if coords == nil || r.reverse == nil {
		return ""
	}
	rev, err := r.reverse.ReverseGeocode(ctx, coords.Lat, coords.Lon, r.opts.DefaultLanguage)
	if err != nil {
		r.logStage(ctx, name, stageReverse, err)
		metrics.ResolveStage.WithLabelValues(stageReverse, "error").Inc()
		return ""
	}
	s := SummaryFromReverse(rev, r.opts.DefaultCountry, r.opts.Separator)
	if s == "" {
		metrics.ResolveStage.WithLabelValues(stageReverse, "miss").Inc()
	} else {
		metrics.ResolveStage.WithLabelValues(stageReverse, "hit").Inc()
	}
	return s
}

// secondarySummary 는 기본 로캘로 재검색한다. 1차 좌표가 있으면 반경 안의 가장 가까운 결과만 쓴다.
func (r *Resolver) secondarySummary(ctx context.Context, name string, coords *models.Coordinates) string {
	results, err := r.search.SearchText(ctx, name, r.opts.DefaultLanguage, r.opts.DefaultRegion)
	if err != nil {
		r.logStage(ctx, name, stageSecondary, err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	pick := 0
	if coords != nil {
		pts := make([]*models.Coordinates, len(results))
		for i := range results {
			pts[i] = results[i].Coordinates
		}
		idx, _, ok := geo.Closest(*coords, pts, r.opts.NearbyRadiusMeters)
		if !ok {
			return ""
		}
		pick = idx
	}
	return SummaryFromComponents(results[pick].AddressComponents, r.opts.DefaultCountry, r.opts.Separator)
}

func (r *Resolver) logStage(ctx context.Context, name, stage string, err error) {
	logger.WarnWithFields("place resolution stage failed", logger.Fields{
		"job_id":    trace.JobIDFromContext(ctx),
		"candidate": name,
		"stage":     stage,
		"error":     err.Error(),
	})
}

func cacheKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
