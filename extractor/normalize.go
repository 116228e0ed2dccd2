package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// normalizeNames 는 모델 응답을 순서가 보존된 평탄한 문자열 목록으로 바꾼다.
// 허용하는 형태: 문자열 목록, 문자열->목록 맵, 문자열->문자열 맵, 그리고 이들을
// {"places": ...} 처럼 한 번 더 감싼 형태. 맵의 키는 이름으로 보지 않는다.
func normalizeNames(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var out []string
	if err := readValue(dec, &out, 0); err != nil {
		return nil, err
	}
	// 최상위 값 뒤에 다른 토큰이 있으면 잘못된 응답이다.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected trailing data in llm response")
	}
	return out, nil
}

const maxDepth = 4

func readValue(dec *json.Decoder, out *[]string, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("llm response nested too deeply")
	}
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch v := tok.(type) {
	case string:
		appendName(out, v)
		return nil
	case json.Delim:
		switch v {
		case '[':
			for dec.More() {
				if err := readValue(dec, out, depth+1); err != nil {
					return err
				}
			}
			_, err := dec.Token() // ]
			return err
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				if err := readMapValue(dec, key, out, depth+1); err != nil {
					return err
				}
			}
			_, err := dec.Token() // }
			return err
		}
		return fmt.Errorf("unexpected delimiter %v", v)
	case nil, bool, json.Number:
		// null, 숫자, 불리언은 이름이 아니다.
		return nil
	default:
		return fmt.Errorf("unexpected token %T", tok)
	}
}

// readMapValue 는 맵의 값을 읽는다. 부가 정보 키의 값은 버린다.
func readMapValue(dec *json.Decoder, key string, out *[]string, depth int) error {
	if isMetaKey(key) {
		var skip json.RawMessage
		return dec.Decode(&skip)
	}
	return readValue(dec, out, depth)
}

// isMetaKey 는 이름이 아닌 부가 정보 키다.
func isMetaKey(key string) bool {
	switch strings.ToLower(key) {
	case "error", "reason", "note", "notes", "confidence", "count":
		return true
	}
	return false
}

func appendName(out *[]string, s string) {
	if s = strings.TrimSpace(s); s != "" {
		*out = append(*out, s)
	}
}
