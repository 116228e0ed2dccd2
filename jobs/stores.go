// Package jobs 는 가져오기/저장 작업의 상태 기계와 실행기를 담는다.
package jobs

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/fetcher"
	"spot-letter/models"
)

// jobStateStore 는 두 작업 컬렉션이 공유하는 조건부 상태 전이다.
type jobStateStore interface {
	MarkProcessing(ctx context.Context, id primitive.ObjectID) (bool, error)
	Fail(ctx context.Context, id primitive.ObjectID, message string) (bool, error)
	Cancel(ctx context.Context, id primitive.ObjectID) (bool, error)
	Status(ctx context.Context, id primitive.ObjectID) (models.JobStatus, error)
}

// ImportJobStore 는 repositories.ImportJobRepository 가 구현한다.
type ImportJobStore interface {
	jobStateStore
	Create(ctx context.Context, userID string, window models.TimeWindow) (*models.ImportJob, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ImportJob, error)
	Complete(ctx context.Context, id primitive.ObjectID, result *models.ImportResult) (bool, error)
}

// SaveJobStore 는 repositories.SaveJobRepository 가 구현한다.
type SaveJobStore interface {
	jobStateStore
	Create(ctx context.Context, userID string, candidates []models.EnrichedCandidate) (*models.SaveJob, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.SaveJob, error)
	Complete(ctx context.Context, id primitive.ObjectID, result *models.SaveResult) (bool, error)
}

type AccountStore interface {
	FindForUser(ctx context.Context, userID string) (*models.ConnectedAccount, error)
}

type PlaceStore interface {
	UpsertPlace(ctx context.Context, ownerID string, c models.EnrichedCandidate, category string) (primitive.ObjectID, error)
}

type ProvenanceStore interface {
	RecordImportProvenance(ctx context.Context, placeID primitive.ObjectID, sourcePostID string, rawPayload map[string]any) error
}

// Transactor 는 fn 안의 저장소 호출을 하나의 트랜잭션으로 묶는다.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// PostFetcher 는 fetcher.Fetcher 가 구현한다.
type PostFetcher interface {
	Fetch(ctx context.Context, account models.ConnectedAccount, start, end time.Time) *fetcher.Stream
}

type CandidateExtractor interface {
	ExtractFromPost(ctx context.Context, post models.RawPost) []models.CandidateName
}

type PlaceResolver interface {
	Resolve(ctx context.Context, candidate models.CandidateName) (*models.EnrichedCandidate, bool)
	BackfillSummary(ctx context.Context, c *models.EnrichedCandidate) bool
}

// InventoryMatcher 는 inventory.Matcher 가 구현한다.
type InventoryMatcher interface {
	Provider() string
	Match(ctx context.Context, c models.EnrichedCandidate) (*models.InventoryMapping, error)
	Verify(ctx context.Context, c models.EnrichedCandidate, externalID string) (*models.InventoryMapping, error)
	Attach(ctx context.Context, placeID primitive.ObjectID, mapping *models.InventoryMapping) (bool, error)
}

type CategoryLabeler interface {
	Label(ctx context.Context, name string, tags []string) (string, error)
}
