package jobs

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"spot-letter/eventbus"
	"spot-letter/events"
	"spot-letter/logger"
)

type jobRunner interface {
	Run(ctx context.Context, id primitive.ObjectID) error
}

// Handler 는 작업 토픽의 이벤트를 타입별 실행기로 보낸다.
type Handler struct {
	imports jobRunner
	saves   jobRunner
}

func NewHandler(imports *ImportRunner, saves *SaveRunner) *Handler {
	return &Handler{imports: imports, saves: saves}
}

// Handle 은 eventbus.EventHandler 시그니처를 따른다.
// 해석할 수 없는 이벤트는 재시도해도 소용없으므로 Permanent 로 DLQ 에 보낸다.
func (h *Handler) Handle(ctx context.Context, ev eventbus.Event) error {
	eventType, err := events.PeekType(ev.Payload)
	if err != nil {
		return eventbus.Permanent(err)
	}

	var runner jobRunner
	switch eventType {
	case events.ImportJobRequested:
		runner = h.imports
	case events.SaveJobRequested:
		runner = h.saves
	default:
		// 다른 서비스용 이벤트는 무시 (커밋)
		logger.Log.Debugf("ignoring event %s of type %s", ev.ID, eventType)
		return nil
	}

	req, err := eventbus.DecodeJSON[events.JobRequestedEvent](ev)
	if err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(req.JobID)
	if err != nil {
		return eventbus.Permanent(fmt.Errorf("invalid job id %q: %w", req.JobID, err))
	}
	return runner.Run(ctx, id)
}
