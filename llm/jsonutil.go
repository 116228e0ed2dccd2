package llm

import (
	"strings"
)

// StripCodeFence 는 모델이 JSON 을 ```json 블록으로 감싸 보낸 경우 본문만 남긴다.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// 첫 줄은 언어 표기(json 등)다.
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
