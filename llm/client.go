// Package llm 은 캡션 추출, 후보 채점, 카테고리 라벨링이 공유하는 LLM 클라이언트다.
// 모든 호출은 실패하거나 잘못된 JSON 을 돌려줄 수 있다고 가정한다.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"spot-letter/config"
	"spot-letter/logger"
	"spot-letter/models"
	"spot-letter/trace"
)

// Request 는 한 번의 LLM 호출 입력이다.
type Request struct {
	// Purpose 는 ai_logs 에 남길 호출 목적이다 (예: caption_extract).
	Purpose   string
	System    string
	Prompt    string
	JSON      bool
	MaxTokens int
}

// Client 는 프롬프트를 보내고 응답 텍스트를 받는다.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CallLogger 는 LLM 호출 기록 저장소다. repositories.AILogRepository 가 구현한다.
type CallLogger interface {
	Insert(ctx context.Context, log models.AILog) error
}

// ErrQuotaExhausted 는 일일 한도를 소진해 호출을 건너뛴 경우다.
var ErrQuotaExhausted = errors.New("llm daily quota exhausted")

// TokenUsage 는 제공자가 보고한 토큰 사용량이다.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// completion 은 제공자별 호출 결과다.
type completion struct {
	Text         string
	ModelVersion string
	Usage        TokenUsage
}

// backend 는 제공자별 호출 구현이다.
type backend interface {
	generate(ctx context.Context, req Request) (*completion, error)
	provider() string
	model() string
}

// Guarded 는 제공자 호출에 타임아웃, 쿼터, 호출 기록을 씌운다.
type Guarded struct {
	backend backend
	quota   *QuotaLimiter
	calls   CallLogger
	timeout time.Duration
	maxOut  int
}

// NewFromConfig 는 llm.provider 설정에 맞는 클라이언트를 만든다.
// calls 가 nil 이면 호출 기록을 남기지 않는다.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig, calls CallLogger) (*Guarded, error) {
	var (
		b   backend
		err error
	)
	switch cfg.Provider {
	case "google", "":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
		}
		b, err = newGenAIBackend(ctx, apiKey, cfg.ModelName)
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		b, err = newLangChainBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return newGuarded(b, NewQuotaLimiter(cfg.Quota), calls, time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.MaxOutputTokens), nil
}

func newGuarded(b backend, quota *QuotaLimiter, calls CallLogger, timeout time.Duration, maxOut int) *Guarded {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Guarded{backend: b, quota: quota, calls: calls, timeout: timeout, maxOut: maxOut}
}

// Complete 는 쿼터를 예약한 뒤 타임아웃 안에서 제공자를 호출한다.
func (g *Guarded) Complete(ctx context.Context, req Request) (string, error) {
	if g.quota != nil {
		ok, err := g.quota.WaitAndReserve(ctx)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", ErrQuotaExhausted
		}
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.maxOut
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	res, err := g.backend.generate(callCtx, req)
	g.record(ctx, req, res, err, started)
	if err != nil {
		return "", fmt.Errorf("llm %s: %w", g.backend.provider(), err)
	}
	return res.Text, nil
}

func (g *Guarded) record(ctx context.Context, req Request, res *completion, callErr error, started time.Time) {
	if g.calls == nil {
		return
	}
	entry := models.AILog{
		JobID:       trace.JobIDFromContext(ctx),
		TraceID:     trace.TraceIDFromContext(ctx),
		Purpose:     req.Purpose,
		Provider:    g.backend.provider(),
		ModelName:   g.backend.model(),
		InputPrompt: fmt.Sprintf("%s\n\n%s", req.System, req.Prompt),
		DurationMs:  time.Since(started).Milliseconds(),
		RequestedAt: started,
		CompletedAt: time.Now(),
	}
	if res != nil {
		entry.OutputResponse = res.Text
		entry.ModelVersion = res.ModelVersion
		entry.InputTokens = res.Usage.InputTokens
		entry.OutputTokens = res.Usage.OutputTokens
		entry.TotalTokens = res.Usage.TotalTokens
	}
	if callErr != nil {
		msg := callErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := g.calls.Insert(context.WithoutCancel(ctx), entry); err != nil {
		logger.Log.Warnf("failed to record llm call (%s): %v", req.Purpose, err)
	}
}
