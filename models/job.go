package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JobStatus 는 가져오기/저장 작업의 상태다.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// IsTerminal 은 더 이상 전이가 없는 상태인지 반환한다.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// TimeWindow 는 양 끝을 포함하는 조회 구간이다.
type TimeWindow struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// Contains 는 start <= t <= end 인지 검사한다.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ImportJob 은 게시물 가져오기 작업 문서다.
// Collection: import_jobs
type ImportJob struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	Window     TimeWindow         `bson:"window" json:"window"`
	Status     JobStatus          `bson:"status" json:"status"`
	Error      string             `bson:"error,omitempty" json:"error,omitempty"`
	Result     *ImportResult      `bson:"result,omitempty" json:"result,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
	StartedAt  *time.Time         `bson:"started_at,omitempty" json:"started_at,omitempty"`
	FinishedAt *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}

// ImportResult 는 완료된 가져오기 작업의 결과 스냅샷이다.
type ImportResult struct {
	Candidates []EnrichedCandidate `bson:"candidates" json:"candidates"`
	Posts      []PostSummary       `bson:"posts" json:"posts"`
}

// SaveJob 은 사용자가 승인한 후보를 저장하는 작업 문서다.
// Collection: save_jobs
type SaveJob struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     string              `bson:"user_id" json:"user_id"`
	Candidates []EnrichedCandidate `bson:"candidates" json:"candidates"`
	Status     JobStatus           `bson:"status" json:"status"`
	Error      string              `bson:"error,omitempty" json:"error,omitempty"`
	Result     *SaveResult         `bson:"result,omitempty" json:"result,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
	StartedAt  *time.Time          `bson:"started_at,omitempty" json:"started_at,omitempty"`
	FinishedAt *time.Time          `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}

type SaveResult struct {
	SavedCount int                 `bson:"saved_count" json:"saved_count"`
	Saved      []SavedPlaceSummary `bson:"saved" json:"saved"`
}

type SavedPlaceSummary struct {
	PlaceID         primitive.ObjectID `bson:"place_id" json:"place_id"`
	Name            string             `bson:"name" json:"name"`
	Category        string             `bson:"category" json:"category"`
	SummaryLocation string             `bson:"summary_location,omitempty" json:"summary_location,omitempty"`
	Providers       []string           `bson:"providers,omitempty" json:"providers,omitempty"`
}
