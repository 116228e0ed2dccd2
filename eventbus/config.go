package eventbus

import (
	"errors"

	"spot-letter/config"
)

var (
	ErrBrokersRequired = errors.New("KAFKA_BOOTSTRAP_SERVERS 또는 kafka.brokers 설정이 필요합니다")
	ErrGroupIDRequired = errors.New("KAFKA_GROUP_ID 또는 kafka.group_id 설정이 필요합니다")
)

// GetBrokers returns Kafka bootstrap servers. 환경변수 오버라이드는 config.Parse 에서 이미 적용된다.
func GetBrokers(cfg config.KafkaConfig) (string, error) {
	if cfg.Brokers == "" {
		return "", ErrBrokersRequired
	}
	return cfg.Brokers, nil
}

// GetGroupID returns the consumer group id. suffix 가 있으면 "<group>-<suffix>" 를 쓴다.
func GetGroupID(cfg config.KafkaConfig, suffix string) (string, error) {
	if cfg.GroupID == "" {
		return "", ErrGroupIDRequired
	}
	if suffix == "" {
		return cfg.GroupID, nil
	}
	return cfg.GroupID + "-" + suffix, nil
}
