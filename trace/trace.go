// Package trace 는 작업 단위 추적 ID 를 컨텍스트로 전달한다.
// 외부 API 호출마다 span 시퀀스가 1,2,3,... 으로 증가한다.
package trace

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

type ctxKey string

const ctxKeyTrace ctxKey = "trace_info"

// Info 는 하나의 작업 실행에 대한 추적 정보다.
type Info struct {
	TraceID string
	JobID   string
	spanSeq int64
}

// GenerateID 는 추적에 사용할 랜덤 ID 를 생성한다.
func GenerateID() string {
	return uuid.NewString()
}

// WithJob 은 작업 ID 와 새 추적 ID 를 담은 컨텍스트를 반환한다.
func WithJob(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, ctxKeyTrace, &Info{TraceID: GenerateID(), JobID: jobID})
}

func infoFromContext(ctx context.Context) *Info {
	if ctx == nil {
		return nil
	}
	v, _ := ctx.Value(ctxKeyTrace).(*Info)
	return v
}

// TraceIDFromContext 는 컨텍스트의 추적 ID 를 반환한다. 없으면 빈 문자열이다.
func TraceIDFromContext(ctx context.Context) string {
	if info := infoFromContext(ctx); info != nil {
		return info.TraceID
	}
	return ""
}

// JobIDFromContext 는 컨텍스트의 작업 ID 를 반환한다.
func JobIDFromContext(ctx context.Context) string {
	if info := infoFromContext(ctx); info != nil {
		return info.JobID
	}
	return ""
}

// NextSpanID 는 span 시퀀스를 1 증가시키고 (traceID, spanID) 를 반환한다.
func NextSpanID(ctx context.Context) (string, string) {
	info := infoFromContext(ctx)
	if info == nil {
		return GenerateID(), "1"
	}
	val := atomic.AddInt64(&info.spanSeq, 1)
	return info.TraceID, strconv.FormatInt(val, 10)
}
