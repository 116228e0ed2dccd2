package config

import (
	"os"

	"spot-letter/logger"
)

// InitLogger 는 logging 설정으로 전역 로거를 초기화한다.
// SERVICE_NAME 이 비어 있으면 설정의 service_name 을 사용해 로그 필드를 채운다.
func InitLogger(cfg AppConfig) {
	if os.Getenv("SERVICE_NAME") == "" && cfg.ServiceName != "" {
		os.Setenv("SERVICE_NAME", cfg.ServiceName)
	}
	logger.Init(cfg.Logging.Level)
}
