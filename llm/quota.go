package llm

import (
	"context"
	"sync"
	"time"

	"spot-letter/config"
)

// QuotaLimiter 는 LLM 호출에 대한 분당/일일 한도를 관리한다.
// 워커 프로세스 단위 인메모리 카운터라 재시작하면 초기화된다.
type QuotaLimiter struct {
	mu sync.Mutex

	dailyLimit int
	usedToday  int
	dayKey     string

	interval time.Duration
	lastCall time.Time

	now func() time.Time
}

// NewQuotaLimiter 는 설정 값이 0 이하인 방향의 제한을 두지 않는다.
func NewQuotaLimiter(q config.QuotaConfig) *QuotaLimiter {
	requestsPerDay := q.RequestsPerDay
	if requestsPerDay < 0 {
		requestsPerDay = 0
	}

	var interval time.Duration
	if q.RequestsPerMinute > 0 {
		interval = time.Minute / time.Duration(q.RequestsPerMinute)
	}

	return &QuotaLimiter{
		dailyLimit: requestsPerDay,
		interval:   interval,
		now:        time.Now,
	}
}

// WaitAndReserve 는 호출 전에 분당/일일 한도를 적용한다.
// - 일일 한도 초과: (false, nil). 호출자는 LLM 호출을 건너뛴다.
// - 컨텍스트 취소: (false, ctx.Err()).
func (l *QuotaLimiter) WaitAndReserve(ctx context.Context) (bool, error) {
	for {
		l.mu.Lock()

		now := l.now().UTC()
		todayKey := now.Format("2006-01-02")
		if l.dayKey != todayKey {
			l.dayKey = todayKey
			l.usedToday = 0
		}

		if l.dailyLimit > 0 && l.usedToday >= l.dailyLimit {
			l.mu.Unlock()
			return false, nil
		}

		var delay time.Duration
		if l.interval > 0 && !l.lastCall.IsZero() {
			delay = l.lastCall.Add(l.interval).Sub(now)
		}

		if delay <= 0 {
			l.usedToday++
			l.lastCall = now
			l.mu.Unlock()
			return true, nil
		}

		l.mu.Unlock()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
