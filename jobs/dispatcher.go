package jobs

import (
	"context"

	"spot-letter/eventbus"
	"spot-letter/events"
)

// Dispatcher 는 작업 요청과 종료 알림을 이벤트 버스에 발행한다.
type Dispatcher struct {
	bus      eventbus.Publisher
	source   string
	maxRetry int
}

func NewDispatcher(bus eventbus.Publisher, source string, maxRetry int) *Dispatcher {
	return &Dispatcher{bus: bus, source: source, maxRetry: maxRetry}
}

// PublishRequested 는 작업 실행 요청을 작업 토픽에 올린다. 파티션 키는 작업 id 다.
func (d *Dispatcher) PublishRequested(ctx context.Context, kind events.JobKind, jobID, userID string) error {
	t := events.ImportJobRequested
	if kind == events.JobKindSave {
		t = events.SaveJobRequested
	}
	e := events.JobRequestedEvent{
		BaseEvent: events.NewBase(t, d.source),
		JobID:     jobID,
		UserID:    userID,
	}
	return eventbus.PublishEnvelope(ctx, d.bus, eventbus.TopicJobEvents, e, d.maxRetry)
}

// PublishFinished 는 종료 알림을 발행한다. 구독자가 없어도 작업 결과에는 영향이 없다.
func (d *Dispatcher) PublishFinished(ctx context.Context, f events.JobFinishedEvent) error {
	f.BaseEvent = events.NewBase(events.JobFinished, d.source)
	return eventbus.PublishEnvelope(ctx, d.bus, eventbus.TopicJobLifecycle, f, 1)
}

// FinishNotifier 는 종료 알림 발행자다. Dispatcher 가 구현한다.
type FinishNotifier interface {
	PublishFinished(ctx context.Context, f events.JobFinishedEvent) error
}

// RequestPublisher 는 작업 요청 발행자다. Dispatcher 가 구현한다.
type RequestPublisher interface {
	PublishRequested(ctx context.Context, kind events.JobKind, jobID, userID string) error
}
