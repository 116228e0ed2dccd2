package eventbus

import (
	"strconv"
	"strings"
	"time"
)

const retryMarker = ".retry."

// ParseRetryDelayFromTopicName는 토픽 이름에서 재시도 지연 시간을 추출합니다.
// 형식: "<base>.retry.<n>" (n은 1부터 시작) => RetryDelays[n-1]
func ParseRetryDelayFromTopicName(name string) (time.Duration, bool) {
	idx := strings.LastIndex(name, retryMarker)
	if idx == -1 || idx+len(retryMarker) >= len(name) {
		return 0, false
	}
	n, err := strconv.Atoi(name[idx+len(retryMarker):])
	if err != nil || n <= 0 || n > len(RetryDelays) {
		return 0, false
	}
	return RetryDelays[n-1], true
}
