package handler

import (
	"roomrelay/internal/app/chat"
	"roomrelay/internal/configs"
	"roomrelay/internal/pkg/limiter"
)

type AppDeps struct {
	Hub       *chat.Hub
	Config    *configs.AppConfig
	IPLimiter *limiter.IPRateLimiter
}
