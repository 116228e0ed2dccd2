// Package keyword 는 카탈로그 검색에 쓸 대체 키워드 목록을 만든다.
package keyword

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// DefaultLodgingKeywords 는 숙박 시설 이름에 흔히 들어가는 단어다.
var DefaultLodgingKeywords = []string{"resort", "hotel", "inn", "hostel", "ryokan", "リゾート", "ホテル", "旅館", "民宿", "宿"}

var bracketPattern = regexp.MustCompile(`\s*[(（\[［【「『〔<＜][^)）\]］】」』〕>＞]*[)）\]］】」』〕>＞]\s*`)

var spacePattern = regexp.MustCompile(`\s+`)

// Generator 는 숙박 키워드 목록을 주입받아 변형을 생성한다.
type Generator struct {
	lodgingKeywords []string
}

// NewGenerator 는 키워드가 비어 있으면 DefaultLodgingKeywords 를 사용한다.
func NewGenerator(lodgingKeywords []string) *Generator {
	if len(lodgingKeywords) == 0 {
		lodgingKeywords = DefaultLodgingKeywords
	}
	kws := make([]string, 0, len(lodgingKeywords))
	for _, k := range lodgingKeywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kws = append(kws, k)
		}
	}
	return &Generator{lodgingKeywords: kws}
}

// Variations 는 기본 키워드로 만든 Generator 의 단축 호출이다.
func Variations(name string) []string {
	return NewGenerator(nil).Variations(name)
}

// Variations 는 원본을 첫 번째로 하는 중복 없는 대체 문자열 목록을 반환한다.
// 순서: 원본, 괄호 제거, 정규화, 정규화+괄호 제거, 숙박 키워드 축약, 공백 제거.
func (g *Generator) Variations(name string) []string {
	original := strings.TrimSpace(name)
	stripped := StripBrackets(original)
	normalized := Normalize(original)
	normStripped := StripBrackets(normalized)

	candidates := []string{original, stripped, normalized, normStripped}
	if short, ok := g.lodgingVariant(normStripped); ok {
		candidates = append(candidates, short)
	}
	if compact := strings.Join(strings.Fields(normStripped), ""); utf8.RuneCountInString(compact) > 3 {
		candidates = append(candidates, compact)
	}

	// 원본은 길이와 관계없이 항상 첫 번째다.
	out := []string{original}
	seen := map[string]struct{}{original: {}}
	for _, c := range candidates[1:] {
		if utf8.RuneCountInString(c) <= 1 {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// StripBrackets 는 괄호로 둘러싼 구간을 지우고 공백을 정리한다.
func StripBrackets(s string) string {
	s = bracketPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Normalize 는 NFKC 정규화 후 전각 영숫자를 반각으로 접는다.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// HasLodgingKeyword 는 s 에 숙박 키워드가 포함되는지 검사한다.
func (g *Generator) HasLodgingKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range g.lodgingKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// IsLodgingType 은 장소 유형/태그 중 하나가 숙박 키워드인지 검사한다.
// ASCII 키워드는 "_" 와 공백으로 나눈 단어 단위로 비교해 "dinner" 같은 부분 일치를 피한다.
func (g *Generator) IsLodgingType(types ...string) bool {
	for _, t := range types {
		lower := strings.ToLower(t)
		words := strings.FieldsFunc(lower, func(r rune) bool { return r == '_' || r == '-' || unicode.IsSpace(r) })
		for _, k := range g.lodgingKeywords {
			if !isASCII(k) {
				if strings.Contains(lower, k) {
					return true
				}
				continue
			}
			if lower == k {
				return true
			}
			for _, w := range words {
				if w == k {
					return true
				}
			}
		}
	}
	return false
}

// lodgingVariant 는 키워드를 포함하거나 2자를 넘는 토큰만 남긴다.
// 공백 없는 CJK 이름은 CJK 키워드 경계에서 토큰을 나눈다.
func (g *Generator) lodgingVariant(s string) (string, bool) {
	if !g.HasLodgingKeyword(s) {
		return "", false
	}
	words := strings.Fields(s)
	joiner := " "
	if len(words) == 1 {
		joiner = ""
	}

	var kept []string
	for _, w := range words {
		for _, tok := range g.splitOnCJKKeywords(w) {
			if g.HasLodgingKeyword(tok) || utf8.RuneCountInString(tok) > 2 {
				kept = append(kept, tok)
			}
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, joiner), true
}

func (g *Generator) splitOnCJKKeywords(word string) []string {
	tokens := []string{word}
	for _, k := range g.lodgingKeywords {
		if isASCII(k) {
			continue
		}
		var next []string
		for _, tok := range tokens {
			if g.isKeyword(tok) || !strings.Contains(tok, k) {
				next = append(next, tok)
				continue
			}
			parts := strings.Split(tok, k)
			for i, p := range parts {
				if p != "" {
					next = append(next, p)
				}
				if i < len(parts)-1 {
					next = append(next, k)
				}
			}
		}
		tokens = next
	}
	return tokens
}

func (g *Generator) isKeyword(tok string) bool {
	lower := strings.ToLower(tok)
	for _, k := range g.lodgingKeywords {
		if lower == k {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
