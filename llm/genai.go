package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type genAIBackend struct {
	client    *genai.Client
	modelName string
}

func newGenAIBackend(ctx context.Context, apiKey, modelName string) (*genAIBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &genAIBackend{client: client, modelName: modelName}, nil
}

func (b *genAIBackend) provider() string { return "google" }
func (b *genAIBackend) model() string    { return b.modelName }

func (b *genAIBackend) generate(ctx context.Context, req Request) (*completion, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := b.client.Models.GenerateContent(ctx, b.modelName, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("genai returned empty result")
	}

	out := &completion{
		Text:         result.Text(),
		ModelVersion: result.ModelVersion,
	}
	if result.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}
