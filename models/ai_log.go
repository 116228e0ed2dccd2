package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LLM 호출 목적. 쿼터와 비용을 단계별로 나눠 보기 위한 값이다.
const (
	PurposeCaptionExtract = "caption_extract"
	PurposeCandidateScore = "candidate_score"
	PurposeCategoryLabel  = "category_label"
)

// AILog 는 LLM 호출 한 번의 기록이다. 작업 안에서 불렸으면 JobID 가 채워진다.
// Collection: ai_logs
type AILog struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobID        string             `bson:"job_id,omitempty" json:"job_id,omitempty"`
	TraceID      string             `bson:"trace_id,omitempty" json:"trace_id,omitempty"`
	Purpose      string             `bson:"purpose" json:"purpose"`
	Provider     string             `bson:"provider" json:"provider"`
	ModelName    string             `bson:"model_name" json:"model_name"`
	ModelVersion string             `bson:"model_version,omitempty" json:"model_version,omitempty"`

	InputTokens  int64 `bson:"input_tokens" json:"input_tokens"`
	OutputTokens int64 `bson:"output_tokens" json:"output_tokens"`
	TotalTokens  int64 `bson:"total_tokens" json:"total_tokens"`
	DurationMs   int64 `bson:"duration_ms" json:"duration_ms"`

	ErrorMessage   *string   `bson:"error_message,omitempty" json:"error_message,omitempty"`
	InputPrompt    string    `bson:"input_prompt" json:"input_prompt"`
	OutputResponse string    `bson:"output_response" json:"output_response"`
	RequestedAt    time.Time `bson:"requested_at" json:"requested_at"`
	CompletedAt    time.Time `bson:"completed_at" json:"completed_at"`
}

// AIUsage 는 목적별 LLM 사용량 집계다.
type AIUsage struct {
	Purpose     string `bson:"_id" json:"purpose"`
	Calls       int64  `bson:"calls" json:"calls"`
	Failures    int64  `bson:"failures" json:"failures"`
	TotalTokens int64  `bson:"total_tokens" json:"total_tokens"`
	DurationMs  int64  `bson:"duration_ms" json:"duration_ms"`
}
