// Package classifier 는 장소 태그 목록을 서비스 카테고리 하나로 라벨링한다.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"spot-letter/llm"
	"spot-letter/models"
)

const systemInstruction = `
You classify a place into exactly one category.
You MUST choose only from this list: %s.
Return ONLY a JSON object: {"category": "<one of the list>"}.
Do NOT wrap the JSON in a markdown code block.
`

// Labeler 는 LLM 으로 카테고리를 정한다. 실패하면 기본 카테고리를 쓴다.
type Labeler struct {
	client     llm.Client
	categories []string
	fallback   string
}

func New(client llm.Client, categories []string, fallback string) *Labeler {
	return &Labeler{client: client, categories: categories, fallback: fallback}
}

// Label 은 태그가 없으면 LLM 을 부르지 않고 기본 카테고리를 반환한다.
// err 는 기본값으로 대체된 원인이며, 반환된 카테고리는 항상 유효하다.
func (l *Labeler) Label(ctx context.Context, name string, tags []string) (string, error) {
	if len(tags) == 0 {
		return l.fallback, nil
	}
	text, err := l.client.Complete(ctx, llm.Request{
		Purpose: models.PurposeCategoryLabel,
		System:  fmt.Sprintf(systemInstruction, strings.Join(l.categories, ", ")),
		Prompt:  fmt.Sprintf("Name: %s\nTags: %s", name, strings.Join(tags, ", ")),
		JSON:    true,
	})
	if err != nil {
		return l.fallback, err
	}

	var out struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(llm.StripCodeFence(text)), &out); err != nil {
		return l.fallback, fmt.Errorf("malformed category response: %w", err)
	}
	for _, c := range l.categories {
		if strings.EqualFold(c, strings.TrimSpace(out.Category)) {
			return c, nil
		}
	}
	return l.fallback, fmt.Errorf("category %q is not allowed", out.Category)
}
