package jobs

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/apperrors"
	"spot-letter/events"
	"spot-letter/logger"
	"spot-letter/models"
	"spot-letter/repositories"
	"spot-letter/trace"
)

// ImportRunner 는 게시물 가져오기 → 후보 추출 → 장소 보강 → (인벤토리 매칭) 을 실행한다.
type ImportRunner struct {
	jobs      ImportJobStore
	accounts  AccountStore
	fetcher   PostFetcher
	extractor CandidateExtractor
	resolver  PlaceResolver
	matcher   InventoryMatcher
	notifier  FinishNotifier
}

// NewImportRunner 의 matcher 와 notifier 는 nil 이어도 된다.
func NewImportRunner(jobs ImportJobStore, accounts AccountStore, f PostFetcher, ex CandidateExtractor, resolver PlaceResolver, matcher InventoryMatcher, notifier FinishNotifier) *ImportRunner {
	return &ImportRunner{
		jobs:      jobs,
		accounts:  accounts,
		fetcher:   f,
		extractor: ex,
		resolver:  resolver,
		matcher:   matcher,
		notifier:  notifier,
	}
}

func (r *ImportRunner) Run(ctx context.Context, id primitive.ObjectID) error {
	return runJob(ctx, events.JobKindImport, r.jobs, r.notifier, id, func(ctx context.Context, finished *events.JobFinishedEvent) error {
		return r.execute(ctx, id, finished)
	})
}

type extractedPost struct {
	post       models.RawPost
	candidates []models.CandidateName
}

func (r *ImportRunner) execute(ctx context.Context, id primitive.ObjectID, finished *events.JobFinishedEvent) error {
	job, err := r.jobs.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load import job: %w", err)
	}
	finished.UserID = job.UserID

	if err := checkpoint(ctx, r.jobs, id, "fetch"); err != nil {
		return err
	}
	account, err := r.accounts.FindForUser(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperrors.New(apperrors.KindInvalid, "import", 0, "no connected account for user")
		}
		return err
	}
	posts, err := r.fetcher.Fetch(ctx, *account, job.Window.Start, job.Window.End).Collect()
	if err != nil {
		return err
	}

	if err := checkpoint(ctx, r.jobs, id, "extraction"); err != nil {
		return err
	}
	extracted := make([]extractedPost, 0, len(posts))
	for _, p := range posts {
		extracted = append(extracted, extractedPost{post: p, candidates: r.extractor.ExtractFromPost(ctx, p)})
	}

	if err := checkpoint(ctx, r.jobs, id, "enrichment"); err != nil {
		return err
	}
	result := &models.ImportResult{
		Candidates: []models.EnrichedCandidate{},
		Posts:      make([]models.PostSummary, 0, len(extracted)),
	}
	for _, ep := range extracted {
		result.Posts = append(result.Posts, ep.post.Summary(len(ep.candidates)))
		for _, c := range ep.candidates {
			enriched, ok := r.resolver.Resolve(ctx, c)
			if !ok {
				continue
			}
			r.attachSecondary(ctx, enriched)
			result.Candidates = append(result.Candidates, *enriched)
		}
	}

	ok, err := r.jobs.Complete(ctx, id, result)
	if err != nil {
		return fmt.Errorf("complete import job: %w", err)
	}
	if !ok {
		return errStopped
	}
	finished.ItemCount = len(result.Candidates)
	return nil
}

// attachSecondary 는 숙박 후보에 보조 제공자 id 를 붙인다. 실패는 후보를 버리지 않는다.
func (r *ImportRunner) attachSecondary(ctx context.Context, c *models.EnrichedCandidate) {
	if r.matcher == nil {
		return
	}
	mapping, err := r.matcher.Match(ctx, *c)
	if err != nil {
		logger.WarnWithFields("inventory match failed", logger.Fields{
			"job_id":    trace.JobIDFromContext(ctx),
			"candidate": c.Name,
			"stage":     "inventory",
			"error":     err.Error(),
		})
		return
	}
	if mapping == nil {
		return
	}
	c.SecondaryProvider = mapping.Provider
	c.SecondaryProviderID = mapping.ExternalID
}
