package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Envelope 는 이벤트 id 와 파티션 키를 스스로 아는 페이로드다.
// events 패키지의 작업 이벤트가 구현하며 키는 작업 id 다.
type Envelope interface {
	EventID() string
	PartitionKey() string
}

// clampMaxRetry 는 재시도 한도를 재시도 토픽 수 안으로 맞춘다. 0 이하는 최대값이다.
func clampMaxRetry(n int) int {
	if n <= 0 || n > len(RetryDelays) {
		return len(RetryDelays)
	}
	return n
}

// NewJSONEvent 는 payload 를 JSON 으로 감싼 Event 를 만든다. id 가 비어 있으면 UUID 를 쓴다.
func NewJSONEvent(id, key string, payload any, maxRetry int) (Event, error) {
	if id == "" {
		id = uuid.NewString()
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("이벤트 %s 인코딩 실패: %w", id, err)
	}
	return Event{ID: id, Key: key, Payload: b, MaxRetry: clampMaxRetry(maxRetry)}, nil
}

// PublishEnvelope 는 env 를 topic 의 기본 토픽에 발행한다.
// 같은 작업의 이벤트는 같은 파티션에 들어가 순서가 유지된다.
func PublishEnvelope(ctx context.Context, pub Publisher, topic Topic, env Envelope, maxRetry int) error {
	evt, err := NewJSONEvent(env.EventID(), env.PartitionKey(), env, maxRetry)
	if err != nil {
		return err
	}
	if err := pub.Publish(ctx, topic.Base(), evt); err != nil {
		return fmt.Errorf("%s 발행 실패 (event=%s key=%s): %w", topic.Base(), evt.ID, evt.Key, err)
	}
	return nil
}

// DecodeJSON 은 Event.Payload 를 T 로 해석한다.
// 해석 실패는 재시도해도 같으므로 Permanent 로 표시해 DLQ 로 보낸다.
func DecodeJSON[T any](evt Event) (T, error) {
	var out T
	if err := json.Unmarshal(evt.Payload, &out); err != nil {
		var zero T
		return zero, Permanent(fmt.Errorf("이벤트 %s 페이로드 해석 실패: %w", evt.ID, err))
	}
	return out, nil
}
