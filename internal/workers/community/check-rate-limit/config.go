package checkratelimit

import (
	"time"

	"mangastream-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Limits  map[string]config.RateLimitConfig
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 3 * time.Second,
		Limits:  config.DefaultRateLimits(),
	}
}
