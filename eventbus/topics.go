package eventbus

import "spot-letter/config"

// 전역 토픽 선언: 기능별 기본 토픽 이름을 관리합니다.
// 워커는 ConfigureTopics 로 config.yaml 의 이름을 적용합니다.

var (
	// TopicJobEvents 는 가져오기/저장 작업 요청이 흐르는 토픽입니다.
	TopicJobEvents = NewTopic("spot-letter.job.events")
	// TopicJobLifecycle 은 작업 종료(JobFinished) 알림 토픽입니다. 재시도 대상이 아닙니다.
	TopicJobLifecycle = NewTopic("spot-letter.job.lifecycle")
)

// AllTopics 는 재시도/DLQ 토픽까지 생성할 토픽 목록입니다.
var AllTopics = []Topic{
	TopicJobEvents,
}

// ConfigureTopics 는 설정된 토픽 이름으로 전역 토픽을 교체합니다. 빈 값은 무시합니다.
func ConfigureTopics(cfg config.KafkaConfig) {
	if cfg.JobTopic != "" {
		TopicJobEvents = NewTopic(cfg.JobTopic)
	}
	if cfg.DoneTopic != "" {
		TopicJobLifecycle = NewTopic(cfg.DoneTopic)
	}
	AllTopics = []Topic{TopicJobEvents}
}
