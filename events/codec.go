package events

import (
	"encoding/json"
	"fmt"
)

// SerializeEvent 이벤트를 JSON으로 직렬화하고 타입 정보 반환
func SerializeEvent(event any) ([]byte, EventType, error) {
	var eventType EventType

	switch e := event.(type) {
	case JobRequestedEvent:
		eventType = e.Type
	case *JobRequestedEvent:
		eventType = e.Type
	case JobFinishedEvent:
		eventType = e.Type
	case *JobFinishedEvent:
		eventType = e.Type
	default:
		return nil, "", fmt.Errorf("unknown event type: %T", event)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, eventType, nil
}

// PeekType 은 본문을 전부 디코딩하지 않고 type 필드만 읽는다.
func PeekType(data []byte) (EventType, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("failed to read event type: %w", err)
	}
	if head.Type == "" {
		return "", fmt.Errorf("event type missing")
	}
	return head.Type, nil
}

// DeserializeEvent 이벤트 타입에 따라 적절한 구조체로 역직렬화
func DeserializeEvent(eventType EventType, data []byte) (any, error) {
	var event any

	switch eventType {
	case ImportJobRequested, SaveJobRequested:
		event = &JobRequestedEvent{}
	case JobFinished:
		event = &JobFinishedEvent{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
