// Package apperrors 는 외부 API 호출 결과를 분류하는 공통 에러 타입을 정의한다.
// 호출자는 에러 메시지 문자열 대신 Kind 로 분기한다.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind 는 외부 호출 결과의 판별자다.
type Kind string

const (
	KindOK          Kind = "ok"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindInvalid     Kind = "invalid"
	KindTransient   Kind = "transient"
	KindAuth        Kind = "auth"
)

// Error 는 Kind 와 원인 에러, 제공자 에러 코드를 함께 담는다.
type Error struct {
	Kind    Kind
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New 는 주어진 Kind 의 에러를 만든다.
func New(kind Kind, op string, code int, message string) *Error {
	return &Error{Kind: kind, Op: op, Code: code, Message: message}
}

// Wrap 은 원인 에러를 보존하며 Kind 를 부여한다.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Auth(op string, code int, message string) *Error {
	return New(KindAuth, op, code, message)
}

func RateLimit(op string, code int, message string) *Error {
	return New(KindRateLimited, op, code, message)
}

func Transient(op string, code int, message string) *Error {
	return New(KindTransient, op, code, message)
}

// KindOf 는 에러 체인에서 Kind 를 찾는다. 분류되지 않은 에러는 transient 로 본다.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func IsAuth(err error) bool      { return err != nil && KindOf(err) == KindAuth }
func IsRateLimit(err error) bool { return err != nil && KindOf(err) == KindRateLimited }
func IsTransient(err error) bool { return err != nil && KindOf(err) == KindTransient }
func IsNotFound(err error) bool  { return err != nil && KindOf(err) == KindNotFound }

// KindFromStatus 는 HTTP 상태 코드를 Kind 로 매핑한다.
func KindFromStatus(status int) Kind {
	switch {
	case status >= 200 && status < 300:
		return KindOK
	case status == 401 || status == 403:
		return KindAuth
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	case status >= 400 && status < 500:
		return KindInvalid
	default:
		return KindTransient
	}
}
