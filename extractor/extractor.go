// Package extractor 는 게시물 캡션에서 방문한 장소 이름을 뽑는다.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"spot-letter/llm"
	"spot-letter/logger"
	"spot-letter/models"
)

const DefaultMaxCaptionRunes = 1200

const systemInstruction = `
You extract visited places from social media captions.
Return ONLY a JSON object of the form {"places": ["<name>", ...]}.

Rules:
- List concrete venues the author actually visited: restaurants, cafes, shops, hotels, inns,
  museums, parks, temples, shrines, attractions, landmarks.
- Do NOT list administrative regions (countries, prefectures, states, cities, wards, towns).
- Do NOT list train stations, bus terminals or airports.
- Keep each name exactly as written in the caption (do not translate). Hashtags may be venue names;
  drop the leading '#'.
- If no venue is mentioned, return {"places": []}.
- Do NOT wrap the JSON in a markdown code block.
`

// Extractor 는 LLM 으로 캡션에서 장소 후보를 추출한다.
type Extractor struct {
	client          llm.Client
	maxCaptionRunes int
}

func New(client llm.Client, maxCaptionRunes int) *Extractor {
	if maxCaptionRunes <= 0 {
		maxCaptionRunes = DefaultMaxCaptionRunes
	}
	return &Extractor{client: client, maxCaptionRunes: maxCaptionRunes}
}

// Extract 는 중복 없는 후보 이름을 순서대로 반환한다. 실패하지 않는다.
// 위치 태그 이름이 있으면 항상 첫 번째다. LLM 호출이 실패하면 위치 태그 이름만 쓴다.
func (e *Extractor) Extract(ctx context.Context, caption, embeddedLocation string) []string {
	var names []string
	if loc := strings.TrimSpace(embeddedLocation); loc != "" {
		names = append(names, loc)
	}

	caption = strings.TrimSpace(caption)
	if caption == "" {
		return Dedup(names)
	}

	extracted, err := e.callModel(ctx, truncateRunes(caption, e.maxCaptionRunes))
	if err != nil {
		logger.WarnWithFields("caption extraction failed, falling back to embedded location", logger.Fields{
			"stage":             "extract",
			"embedded_location": embeddedLocation,
			"error":             err.Error(),
		})
		return Dedup(names)
	}
	return Dedup(append(names, extracted...))
}

// ExtractFromPost 는 게시물 메타데이터를 붙인 CandidateName 목록을 만든다.
func (e *Extractor) ExtractFromPost(ctx context.Context, post models.RawPost) []models.CandidateName {
	names := e.Extract(ctx, post.Caption, post.LocationName)
	embedded := strings.TrimSpace(post.LocationName)

	out := make([]models.CandidateName, 0, len(names))
	for i, n := range names {
		out = append(out, models.CandidateName{
			Name:                 n,
			SourcePostID:         post.ExternalID,
			Permalink:            post.Permalink,
			CaptionExcerpt:       post.Excerpt(),
			PostedAt:             post.Timestamp,
			FromEmbeddedLocation: i == 0 && embedded != "",
		})
	}
	return out
}

func (e *Extractor) callModel(ctx context.Context, caption string) ([]string, error) {
	text, err := e.client.Complete(ctx, llm.Request{
		Purpose: models.PurposeCaptionExtract,
		System:  systemInstruction,
		Prompt:  caption,
		JSON:    true,
	})
	if err != nil {
		return nil, err
	}
	names, err := normalizeNames([]byte(llm.StripCodeFence(text)))
	if err != nil {
		return nil, fmt.Errorf("malformed extraction response: %w", err)
	}
	return names, nil
}

// Dedup 은 대소문자와 공백을 무시하고 처음 나온 순서대로 중복을 제거한다.
func Dedup(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := dedupKey(n)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

func dedupKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
