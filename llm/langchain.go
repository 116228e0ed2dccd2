package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"spot-letter/config"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// langChainBackend 는 Gemini 이외의 제공자를 langchaingo 로 호출한다.
type langChainBackend struct {
	llm       llms.Model
	name      string
	modelName string
}

func newLangChainBackend(cfg config.LLMConfig) (*langChainBackend, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case ProviderOllama:
		host := cfg.OllamaHost
		if host == "" {
			host = "http://localhost:11434"
		}
		model, err = ollama.New(
			ollama.WithModel(cfg.ModelName),
			ollama.WithServerURL(host),
		)
	case ProviderOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		model, err = openai.New(
			openai.WithToken(key),
			openai.WithModel(cfg.ModelName),
		)
	case ProviderAnthropic:
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		model, err = anthropic.New(
			anthropic.WithToken(key),
			anthropic.WithModel(cfg.ModelName),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s model: %w", cfg.Provider, err)
	}
	return &langChainBackend{llm: model, name: cfg.Provider, modelName: cfg.ModelName}, nil
}

func (b *langChainBackend) provider() string { return b.name }
func (b *langChainBackend) model() string    { return b.modelName }

func (b *langChainBackend) generate(ctx context.Context, req Request) (*completion, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := b.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	choice := resp.Choices[0]
	out := &completion{Text: choice.Content}
	out.Usage.InputTokens = intInfo(choice.GenerationInfo, "PromptTokens", "InputTokens")
	out.Usage.OutputTokens = intInfo(choice.GenerationInfo, "CompletionTokens", "OutputTokens")
	out.Usage.TotalTokens = intInfo(choice.GenerationInfo, "TotalTokens")
	if out.Usage.TotalTokens == 0 {
		out.Usage.TotalTokens = out.Usage.InputTokens + out.Usage.OutputTokens
	}
	return out, nil
}

// intInfo 는 제공자마다 다른 GenerationInfo 키에서 토큰 수를 읽는다.
func intInfo(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
