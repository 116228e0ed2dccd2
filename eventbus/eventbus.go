package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RetryDelays는 재시도 횟수(1-based)별로 사용할 고정된 지연 시간 목록입니다.
// 외부 API 일시 장애를 흡수하는 것이 목적이라 작업 이벤트는 짧은 간격부터 시작합니다.
var RetryDelays = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
}

// Topic은 토픽의 기본 이름, 재시도 토픽, DLQ 토픽 이름을 관리합니다.
type Topic struct {
	base string
}

func NewTopic(base string) Topic {
	return Topic{base: base}
}

func (t Topic) Base() string {
	return t.base
}

// DLQ는 DLQ 토픽 이름을 반환합니다 (예: my_topic.dlq).
func (t Topic) DLQ() string {
	return t.base + ".dlq"
}

// GetRetryTopics는 모든 재시도 토픽의 이름을 반환합니다.
// 이름 형식은 "<base>.retry.<n>" 이며 ParseRetryDelayFromTopicName 과 짝을 이룹니다.
func (t Topic) GetRetryTopics() []string {
	topics := make([]string, len(RetryDelays))
	for i := range RetryDelays {
		topics[i] = t.retryTopic(i + 1)
	}
	return topics
}

// GetRetryTopic은 다음 재시도 횟수(1-based)에 해당하는 재시도 토픽 이름을 반환합니다.
func (t Topic) GetRetryTopic(retryCount int) (string, error) {
	if retryCount <= 0 || retryCount > len(RetryDelays) {
		return "", ErrMaxRetryExceeded
	}
	return t.retryTopic(retryCount), nil
}

func (t Topic) retryTopic(n int) string {
	return fmt.Sprintf("%s.retry.%d", t.base, n)
}

// Event는 Kafka 메시지의 페이로드로 사용되는 구조체입니다.
type Event struct {
	ID string `json:"id"`
	// Key 는 파티션 키입니다. 비어 있으면 ID 를 사용합니다. 작업 이벤트는 작업 id 를 씁니다.
	Key       string          `json:"key,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Retry     int             `json:"retry"` // 현재 재시도 횟수 (0부터 시작)
	MaxRetry  int             `json:"max_retry"`
	LastError string          `json:"last_error,omitempty"`
}

// PartitionKey는 메시지 키로 사용할 값을 반환합니다.
func (e Event) PartitionKey() string {
	if e.Key != "" {
		return e.Key
	}
	return e.ID
}

// EventHandler는 이벤트 처리 함수의 시그니처입니다.
type EventHandler func(ctx context.Context, event Event) error

// Publisher 는 발행만 필요한 곳(jobs.Dispatcher 등)에서 사용합니다.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// EventBus 인터페이스는 이벤트 발행 및 구독의 추상화를 정의합니다.
type EventBus interface {
	Publisher
	// Subscribe는 기본 토픽을 구독하여 메인 로직을 실행합니다.
	Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error
	// StartRetryReinjector는 모든 재시도 토픽을 구독하고 기본 토픽으로 이벤트를 재발행합니다.
	StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error
	Close()
}

// ErrMaxRetryExceeded는 최대 재시도 횟수를 초과했을 때 반환되는 오류입니다.
var ErrMaxRetryExceeded = errors.New("최대 재시도 횟수 초과")

// ErrPermanent 로 감싼 핸들러 오류는 재시도 없이 바로 DLQ 로 보냅니다.
var ErrPermanent = errors.New("재시도 불가 오류")

// Permanent 는 err 를 재시도 불가 오류로 표시합니다.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// routeFailure 는 핸들러 실패 후 이벤트를 보낼 토픽과 갱신된 이벤트를 결정합니다.
func routeFailure(topic Topic, evt Event, handlerErr error) (string, Event) {
	evt.LastError = handlerErr.Error()
	if errors.Is(handlerErr, ErrPermanent) {
		return topic.DLQ(), evt
	}
	next := evt.Retry + 1
	if next > evt.MaxRetry {
		return topic.DLQ(), evt
	}
	retryTopic, err := topic.GetRetryTopic(next)
	if err != nil {
		return topic.DLQ(), evt
	}
	evt.Retry = next
	return retryTopic, evt
}
