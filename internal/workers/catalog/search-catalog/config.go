package searchcatalog

import "time"

type Config struct {
	Timeout     time.Duration
	IndexName   string
	DefaultSize int
	MaxSize     int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     5 * time.Second,
		IndexName:   "manga",
		DefaultSize: 20,
		MaxSize:     100,
	}
}
