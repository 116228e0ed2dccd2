package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"spot-letter/logger"
)

// KafkaEventBus는 confluent-kafka-go 라이브러리를 사용한 EventBus 구현체입니다.
type KafkaEventBus struct {
	Producer *kafka.Producer
	Brokers  string
}

// NewKafkaEventBus는 Kafka Producer를 초기화합니다.
func NewKafkaEventBus(brokers string) (*KafkaEventBus, error) {
	producerCfg := &kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           5,
	}
	if maxBytes := envInt("KAFKA_MESSAGE_MAX_BYTES"); maxBytes > 0 {
		(*producerCfg)["message.max.bytes"] = maxBytes
	}

	p, err := kafka.NewProducer(producerCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka Producer 생성 실패: %w", err)
	}

	// 전달 보고서와 클라이언트 오류 로깅
	go func() {
		for e := range p.Events() {
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					logger.Log.Errorf("메시지 전달 실패 %v: %v", ev.TopicPartition, ev.TopicPartition.Error)
				}
			case kafka.Error:
				logger.Log.Errorf("Kafka 오류: %v", ev)
			}
		}
	}()

	return &KafkaEventBus{
		Producer: p,
		Brokers:  brokers,
	}, nil
}

// Close는 남은 메시지를 플러시하고 Producer를 종료합니다.
func (k *KafkaEventBus) Close() {
	if k.Producer != nil {
		if remaining := k.Producer.Flush(5000); remaining > 0 {
			logger.Log.Warnf("플러시 후에도 %d개의 메시지가 남아 있습니다.", remaining)
		}
		k.Producer.Close()
		logger.Log.Info("Kafka Producer 종료.")
	}
}

// Publish는 지정된 토픽에 이벤트를 발행하고 전달 보고를 기다립니다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("이벤트 마샬링 실패: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)

	err = k.Producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          data,
		Key:            []byte(event.PartitionKey()),
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("메시지 발행 실패: %w", err)
	}

	select {
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("예상치 못한 전달 보고: %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("메시지 전달 실패: %w", m.TopicPartition.Error)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (k *KafkaEventBus) newConsumer(groupID string) (*kafka.Consumer, error) {
	consumerCfg := &kafka.ConfigMap{
		"bootstrap.servers":             k.Brokers,
		"group.id":                      groupID,
		"auto.offset.reset":             "earliest",
		"enable.auto.commit":            false, // 재시도 로직을 위해 수동 커밋
		"partition.assignment.strategy": "range",
	}
	// 작업 하나가 수 분 걸릴 수 있으므로 필요하면 poll 간격을 늘린다.
	if maxPoll := envInt("KAFKA_MAX_POLL_INTERVAL_MS"); maxPoll > 0 {
		(*consumerCfg)["max.poll.interval.ms"] = maxPoll
	}
	return kafka.NewConsumer(consumerCfg)
}

// Subscribe는 기본 토픽을 구독하고 핸들러를 실행합니다.
// 핸들러가 실패하면 재시도 토픽 또는 DLQ 로 이벤트를 옮긴 뒤 커밋합니다.
func (k *KafkaEventBus) Subscribe(ctx context.Context, groupID string, topic Topic, handler EventHandler) error {
	c, err := k.newConsumer(groupID)
	if err != nil {
		return fmt.Errorf("kafka Consumer 생성 실패: %w", err)
	}
	defer c.Close()

	if err := c.SubscribeTopics([]string{topic.Base()}, nil); err != nil {
		return fmt.Errorf("토픽 구독 실패 %s: %w", topic.Base(), err)
	}
	logger.Log.Infof("메인 컨슈머 (%s) 시작됨. 구독 토픽: %s", groupID, topic.Base())

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("메인 컨슈머 종료 중.")
			return ctx.Err()
		default:
		}

		msg, err := c.ReadMessage(100 * time.Millisecond)
		if err != nil {
			if kerr, ok := err.(kafka.Error); ok && kerr.IsFatal() {
				return fmt.Errorf("메인 컨슈머 치명적 오류: %w", err)
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Log.Errorf("토픽 %s의 이벤트 페이로드 오류: %v. 메시지를 건너뛰고 커밋합니다.", *msg.TopicPartition.Topic, err)
			_, _ = c.CommitMessage(msg)
			continue
		}
		evt.MaxRetry = clampMaxRetry(evt.MaxRetry)

		if evt.Retry > 0 {
			logger.Log.Infof("이벤트 %s 처리 시작 (재시도 %d/%d)", evt.ID, evt.Retry, evt.MaxRetry)
		} else {
			logger.Log.Debugf("이벤트 %s 처리 시작", evt.ID)
		}

		if herr := handler(ctx, evt); herr != nil {
			dest, next := routeFailure(topic, evt, herr)
			if dest == topic.DLQ() {
				logger.Log.Errorf("이벤트 %s 를 DLQ %s 로 전송. 최종 오류: %v", evt.ID, dest, herr)
			} else {
				logger.Log.Warnf("이벤트 %s 처리 실패. 재시도 %d/%d 를 토픽 %s 에 예약: %v", evt.ID, next.Retry, next.MaxRetry, dest, herr)
			}
			if perr := k.Publish(ctx, dest, next); perr != nil {
				logger.Log.Errorf("토픽 %s 발행 실패: %v. 오프셋 커밋 안함.", dest, perr)
				continue
			}
		}

		if _, err := c.CommitMessage(msg); err != nil {
			logger.Log.Errorf("오프셋 커밋 오류: %v", err)
		}
	}
}

// StartRetryReinjector는 모든 재시도 토픽을 구독하고 지연 시간이 지난 메시지를 기본 토픽으로 재발행합니다.
func (k *KafkaEventBus) StartRetryReinjector(ctx context.Context, groupID string, topic Topic) error {
	c, err := k.newConsumer(groupID)
	if err != nil {
		return fmt.Errorf("kafka 재시도 재주입기 생성 실패: %w", err)
	}
	defer c.Close()

	retryTopics := topic.GetRetryTopics()
	if err := c.SubscribeTopics(retryTopics, nil); err != nil {
		return fmt.Errorf("재시도 토픽 구독 실패 %v: %w", retryTopics, err)
	}
	logger.Log.Infof("재시도 재주입 컨슈머 (%s) 시작됨. 구독 토픽: %s", groupID, strings.Join(retryTopics, ", "))

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("재시도 재주입 컨슈머 종료 중.")
			return ctx.Err()
		default:
		}

		msg, err := c.ReadMessage(100 * time.Millisecond)
		if err != nil {
			if kerr, ok := err.(kafka.Error); ok {
				if kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				if kerr.IsFatal() {
					return fmt.Errorf("재시도 재주입 컨슈머 치명적 오류: %w", err)
				}
			}
			logger.Log.Errorf("재시도 재주입 컨슈머 ReadMessage 오류: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		topicName := *msg.TopicPartition.Topic
		delay, ok := ParseRetryDelayFromTopicName(topicName)
		if !ok {
			logger.Log.Errorf("재시도 토픽 이름 파싱 실패: %s. 메시지를 건너뛰고 커밋합니다.", topicName)
			_, _ = c.CommitMessage(msg)
			continue
		}

		if wait := time.Until(msg.Timestamp.Add(delay)); wait > 0 {
			// 파티션을 되감아 같은 메시지를 다시 읽는다. 컨슈머 스레드는 짧게만 블로킹한다.
			time.Sleep(clamp(wait, 50*time.Millisecond, 500*time.Millisecond))
			if err := c.Seek(msg.TopicPartition, 0); err != nil {
				logger.Log.Warnf("재시도 토픽 %s seek 실패: %v", topicName, err)
			}
			continue
		}

		var evt Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Log.Errorf("재시도 토픽 %s의 이벤트 페이로드 오류: %v. 메시지를 건너뛰고 커밋합니다.", topicName, err)
			_, _ = c.CommitMessage(msg)
			continue
		}

		logger.Log.Infof("이벤트 %s를 %s에서 %s로 재주입. (재시도: %d)", evt.ID, topicName, topic.Base(), evt.Retry)
		if err := k.Publish(ctx, topic.Base(), evt); err != nil {
			logger.Log.Errorf("이벤트 %s 재주입 실패: %v. 오프셋 커밋 안함.", evt.ID, err)
			continue
		}
		if _, err := c.CommitMessage(msg); err != nil {
			logger.Log.Errorf("재주입 후 커밋 오류: %v", err)
		}
	}
}

func clamp(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// envInt 는 양의 정수 환경변수를 읽는다. 비어 있거나 잘못된 값이면 0 을 반환해 라이브러리 기본값을 쓰게 한다.
func envInt(key string) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		logger.Log.Warnf("%s 환경변수 값이 올바르지 않습니다(%q). 기본값 사용.", key, raw)
		return 0
	}
	return v
}
