package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 이벤트 타입 정의
type EventType string

const (
	ImportJobRequested EventType = "job.import_requested"
	SaveJobRequested   EventType = "job.save_requested"
	JobFinished        EventType = "job.finished"
)

// JobKind 는 작업 종류다. 메트릭 라벨로도 쓴다.
type JobKind string

const (
	JobKindImport JobKind = "import"
	JobKindSave   JobKind = "save"
)

const schemaVersion = "1"

// BaseEvent 모든 이벤트의 기본 구조
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // "api", "worker" 등
	Version   string    `json:"version"`
}

// GetType 이벤트 타입을 반환
func (e BaseEvent) GetType() EventType {
	return e.Type
}

// EventID 는 버스 메시지 id 로 쓰인다.
func (e BaseEvent) EventID() string {
	return e.ID
}

// NewBase 는 새 id 와 현재 시각으로 BaseEvent 를 만든다.
func NewBase(t EventType, source string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Version:   schemaVersion,
	}
}

// JobRequestedEvent 는 가져오기/저장 작업 실행 요청이다.
// 작업 입력은 job 문서에 있으므로 id 만 싣는다.
type JobRequestedEvent struct {
	BaseEvent
	JobID  string `json:"job_id"`
	UserID string `json:"user_id"`
}

// PartitionKey 는 작업 id 다. 같은 작업의 이벤트는 한 파티션에서 순서대로 처리된다.
func (e JobRequestedEvent) PartitionKey() string { return e.JobID }

// JobFinishedEvent 는 작업이 종료 상태에 도달했을 때 발행된다.
type JobFinishedEvent struct {
	BaseEvent
	JobID     string  `json:"job_id"`
	Kind      JobKind `json:"kind"`
	UserID    string  `json:"user_id"`
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
	ItemCount int     `json:"item_count"`
}

func (e JobFinishedEvent) PartitionKey() string { return e.JobID }
