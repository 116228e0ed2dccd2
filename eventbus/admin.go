package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// EnsureTopics는 기본 토픽, 모든 지연 토픽, DLQ 토픽을 생성합니다.
// 이미 존재하는 토픽에 대해서는 성공으로 간주합니다.
func EnsureTopics(ctx context.Context, brokers string, topic Topic, basePartitions int) error {
	return createTopics(ctx, brokers, topicSpecs(topic, basePartitions))
}

// EnsurePlainTopic 은 재시도/DLQ 없이 단일 토픽만 생성합니다. (작업 종료 알림용)
func EnsurePlainTopic(ctx context.Context, brokers, name string, partitions int) error {
	return createTopics(ctx, brokers, []kafka.TopicSpecification{{
		Topic:             name,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
}

func topicSpecs(topic Topic, basePartitions int) []kafka.TopicSpecification {
	// 생성할 토픽 사양 구성
	specs := make([]kafka.TopicSpecification, 0, 2+len(RetryDelays))

	// 기본 토픽
	specs = append(specs, kafka.TopicSpecification{
		Topic:             topic.Base(),
		NumPartitions:     basePartitions,
		ReplicationFactor: 1,
	})

	// DLQ 토픽 (1 파티션 권장)
	specs = append(specs, kafka.TopicSpecification{
		Topic:             topic.DLQ(),
		NumPartitions:     1,
		ReplicationFactor: 1,
	})

	// 재시도 토픽들 (기본 토픽과 동일한 파티션 수 권장)
	for _, retryTopic := range topic.GetRetryTopics() {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             retryTopic,
			NumPartitions:     basePartitions,
			ReplicationFactor: 1,
		})
	}

	return specs
}

func createTopics(ctx context.Context, brokers string, specs []kafka.TopicSpecification) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("AdminClient 생성 실패: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return fmt.Errorf("토픽 생성 요청 실패: %w", err)
	}

	for _, r := range results {
		code := r.Error.Code()
		if code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("토픽 %s 생성 실패: %v", r.Topic, r.Error)
		}
	}

	return nil
}
