package jobs

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/events"
	"spot-letter/logger"
	"spot-letter/models"
	"spot-letter/trace"
)

// SaveOptions 는 저장 실행기의 체크포인트 간격이다.
type SaveOptions struct {
	CheckpointEvery int
	DefaultCategory string
}

// SaveRunner 는 사용자가 승인한 후보를 장소로 저장한다.
type SaveRunner struct {
	jobs        SaveJobStore
	places      PlaceStore
	provenances ProvenanceStore
	tx          Transactor
	labeler     CategoryLabeler
	resolver    PlaceResolver
	matchers    []InventoryMatcher
	notifier    FinishNotifier
	opts        SaveOptions
}

func NewSaveRunner(jobs SaveJobStore, places PlaceStore, provenances ProvenanceStore, tx Transactor, labeler CategoryLabeler, resolver PlaceResolver, matchers []InventoryMatcher, notifier FinishNotifier, opts SaveOptions) *SaveRunner {
	if opts.CheckpointEvery <= 0 {
		opts.CheckpointEvery = 5
	}
	if opts.DefaultCategory == "" {
		opts.DefaultCategory = "other"
	}
	return &SaveRunner{
		jobs:        jobs,
		places:      places,
		provenances: provenances,
		tx:          tx,
		labeler:     labeler,
		resolver:    resolver,
		matchers:    matchers,
		notifier:    notifier,
		opts:        opts,
	}
}

func (r *SaveRunner) Run(ctx context.Context, id primitive.ObjectID) error {
	return runJob(ctx, events.JobKindSave, r.jobs, r.notifier, id, func(ctx context.Context, finished *events.JobFinishedEvent) error {
		return r.execute(ctx, id, finished)
	})
}

func (r *SaveRunner) execute(ctx context.Context, id primitive.ObjectID, finished *events.JobFinishedEvent) error {
	job, err := r.jobs.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load save job: %w", err)
	}
	finished.UserID = job.UserID

	// 보강은 항목마다 하고 저장은 배치 전체를 하나의 트랜잭션으로 묶는다.
	prepared := make([]preparedPlace, 0, len(job.Candidates))
	for i, c := range job.Candidates {
		if i%r.opts.CheckpointEvery == 0 {
			if err := checkpoint(ctx, r.jobs, id, fmt.Sprintf("save[%d]", i)); err != nil {
				return err
			}
		}
		prepared = append(prepared, r.prepare(ctx, c))
	}
	if err := checkpoint(ctx, r.jobs, id, "persist"); err != nil {
		return err
	}

	placeIDs, err := r.persist(ctx, job.UserID, prepared)
	if err != nil {
		return err
	}

	result := &models.SaveResult{Saved: make([]models.SavedPlaceSummary, 0, len(prepared))}
	for i, p := range prepared {
		result.Saved = append(result.Saved, r.attach(ctx, placeIDs[i], p))
	}
	result.SavedCount = len(result.Saved)

	ok, err := r.jobs.Complete(ctx, id, result)
	if err != nil {
		return fmt.Errorf("complete save job: %w", err)
	}
	if !ok {
		return errStopped
	}
	finished.ItemCount = result.SavedCount
	return nil
}

// preparedPlace 는 저장 직전까지 보강된 후보다.
type preparedPlace struct {
	candidate models.EnrichedCandidate
	category  string
	mappings  []matchedMapping
}

// prepare 는 보강 단계(카테고리, 요약 위치, 인벤토리)의 실패를 흡수한다.
func (r *SaveRunner) prepare(ctx context.Context, c models.EnrichedCandidate) preparedPlace {
	category := r.category(ctx, c)
	if c.SummaryLocation == "" && r.resolver != nil {
		r.resolver.BackfillSummary(ctx, &c)
	}
	return preparedPlace{candidate: c, category: category, mappings: r.match(ctx, c)}
}

// persist 는 모든 장소와 출처 기록을 한 트랜잭션으로 쓴다. 하나라도 실패하면 전부 롤백된다.
func (r *SaveRunner) persist(ctx context.Context, ownerID string, prepared []preparedPlace) ([]primitive.ObjectID, error) {
	placeIDs := make([]primitive.ObjectID, len(prepared))
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for i, p := range prepared {
			c := p.candidate
			placeID, err := r.places.UpsertPlace(txCtx, ownerID, c, p.category)
			if err != nil {
				return fmt.Errorf("persist place %q: %w", c.DisplayName(), err)
			}
			if err := r.provenances.RecordImportProvenance(txCtx, placeID, c.SourcePostID, provenancePayload(c)); err != nil {
				return fmt.Errorf("persist place %q: %w", c.DisplayName(), err)
			}
			placeIDs[i] = placeID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placeIDs, nil
}

// attach 는 커밋 이후 매핑을 연결한다. 실패는 로그만 남긴다.
func (r *SaveRunner) attach(ctx context.Context, placeID primitive.ObjectID, p preparedPlace) models.SavedPlaceSummary {
	c := p.candidate
	summary := models.SavedPlaceSummary{
		PlaceID:         placeID,
		Name:            c.DisplayName(),
		Category:        p.category,
		SummaryLocation: c.SummaryLocation,
	}
	for _, mm := range p.mappings {
		if _, err := mm.matcher.Attach(ctx, placeID, mm.mapping); err != nil {
			r.logSkip(ctx, c, "attach_"+mm.matcher.Provider(), err)
			continue
		}
		summary.Providers = append(summary.Providers, mm.mapping.Provider)
	}
	return summary
}

func (r *SaveRunner) category(ctx context.Context, c models.EnrichedCandidate) string {
	if r.labeler == nil {
		return r.opts.DefaultCategory
	}
	tags := c.Tags
	if c.PrimaryType != "" {
		tags = append([]string{c.PrimaryType}, c.Tags...)
	}
	label, err := r.labeler.Label(ctx, c.DisplayName(), tags)
	if err != nil {
		r.logSkip(ctx, c, "category", err)
	}
	if label == "" {
		return r.opts.DefaultCategory
	}
	return label
}

type matchedMapping struct {
	matcher InventoryMatcher
	mapping *models.InventoryMapping
}

// match 는 후보에 이미 보조 제공자 id 가 있으면 그 id 만 같은 기준으로 재검증한다.
// 후보는 호출자가 넘긴 값이므로 id 를 그대로 믿지 않는다.
func (r *SaveRunner) match(ctx context.Context, c models.EnrichedCandidate) []matchedMapping {
	var out []matchedMapping
	for _, m := range r.matchers {
		provider := m.Provider()
		var (
			mapping *models.InventoryMapping
			err     error
		)
		if c.SecondaryProvider == provider && c.SecondaryProviderID != "" {
			mapping, err = m.Verify(ctx, c, c.SecondaryProviderID)
		} else {
			mapping, err = m.Match(ctx, c)
		}
		if err != nil {
			r.logSkip(ctx, c, "inventory_"+provider, err)
			continue
		}
		if mapping != nil {
			out = append(out, matchedMapping{m, mapping})
		}
	}
	return out
}

func (r *SaveRunner) logSkip(ctx context.Context, c models.EnrichedCandidate, stage string, err error) {
	logger.WarnWithFields("save enrichment step skipped", logger.Fields{
		"job_id":    trace.JobIDFromContext(ctx),
		"candidate": c.Name,
		"stage":     stage,
		"error":     err.Error(),
	})
}

func provenancePayload(c models.EnrichedCandidate) map[string]any {
	payload := map[string]any{
		"name":                   c.Name,
		"permalink":              c.Permalink,
		"caption_excerpt":        c.CaptionExcerpt,
		"posted_at":              c.PostedAt,
		"from_embedded_location": c.FromEmbeddedLocation,
		"canonical_name":         c.CanonicalName,
		"formatted_address":      c.FormattedAddress,
		"external_place_id":      c.ExternalPlaceID,
	}
	if c.SecondaryProviderID != "" {
		payload["secondary_provider"] = c.SecondaryProvider
		payload["secondary_provider_id"] = c.SecondaryProviderID
	}
	return payload
}
