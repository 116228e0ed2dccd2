// Package scorer 는 카탈로그 후보가 목표 장소와 같은 곳인지 LLM 으로 판정한다.
package scorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"spot-letter/llm"
	"spot-letter/models"
)

const DefaultThreshold = 70

// ErrUnparseable 은 모델 응답에서 판정을 읽지 못한 경우다.
var ErrUnparseable = errors.New("unparseable scoring response")

// Candidate 는 채점 대상 카탈로그 항목이다.
type Candidate struct {
	ID      string
	Title   string
	Address string
}

// Decision 은 모델이 고른 후보와 점수다. Index 는 입력 목록 기준이다.
type Decision struct {
	Index  int
	Score  int
	Reason string
}

// Accepted 는 점수가 임계값 이상인지 반환한다.
func (d Decision) Accepted(threshold int) bool {
	return d.Score >= threshold
}

const systemInstruction = `
You decide whether lodging catalog entries refer to the same real-world property as a target name.
Names may differ in language (Japanese/English), width, branch suffixes or brackets.
Return ONLY a JSON object: {"best_index": <0-based index of the best entry>, "score": <0-100>, "reason": "<short>"}.
score is your confidence (0-100) that the chosen entry is the same property as the target.
If none match, choose the closest entry and give it a low score.
Do NOT wrap the JSON in a markdown code block.
`

type Scorer struct {
	client llm.Client
}

func New(client llm.Client) *Scorer {
	return &Scorer{client: client}
}

// Score 는 후보 하나의 일치 점수를 매긴다.
func (s *Scorer) Score(ctx context.Context, target string, c Candidate) (Decision, error) {
	return s.Rank(ctx, target, []Candidate{c})
}

// Rank 는 여러 후보를 한 번의 호출로 비교해 가장 그럴듯한 후보를 고른다.
func (s *Scorer) Rank(ctx context.Context, target string, candidates []Candidate) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{}, fmt.Errorf("no candidates to score")
	}
	text, err := s.client.Complete(ctx, llm.Request{
		Purpose: models.PurposeCandidateScore,
		System:  systemInstruction,
		Prompt:  buildPrompt(target, candidates),
		JSON:    true,
	})
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(text, len(candidates))
}

func buildPrompt(target string, candidates []Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target: %s\nEntries:\n", target)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s", i, c.Title)
		if c.Address != "" {
			fmt.Fprintf(&b, " (%s)", c.Address)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type rawDecision struct {
	BestIndex *json.Number `json:"best_index"`
	Score     *json.Number `json:"score"`
	Reason    string       `json:"reason"`
}

func parseDecision(text string, n int) (Decision, error) {
	dec := json.NewDecoder(strings.NewReader(llm.StripCodeFence(text)))
	dec.UseNumber()

	var raw rawDecision
	if err := dec.Decode(&raw); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if raw.Score == nil {
		return Decision{}, fmt.Errorf("%w: missing score", ErrUnparseable)
	}
	score, err := raw.Score.Float64()
	if err != nil || score < 0 || score > 100 {
		return Decision{}, fmt.Errorf("%w: score out of range", ErrUnparseable)
	}

	idx := 0
	if raw.BestIndex != nil {
		i, err := raw.BestIndex.Int64()
		if err != nil || i < 0 || int(i) >= n {
			return Decision{}, fmt.Errorf("%w: best_index out of range", ErrUnparseable)
		}
		idx = int(i)
	} else if n > 1 {
		return Decision{}, fmt.Errorf("%w: missing best_index", ErrUnparseable)
	}

	return Decision{Index: idx, Score: int(score + 0.5), Reason: raw.Reason}, nil
}
