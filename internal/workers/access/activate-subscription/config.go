package activatesubscription

import "time"

type Config struct {
	Timeout         time.Duration
	MaxDurationDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		MaxDurationDays: 366,
	}
}
