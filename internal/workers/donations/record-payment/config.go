package recordpayment

import "time"

type Config struct {
	Timeout         time.Duration
	DefaultCurrency string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		DefaultCurrency: "USD",
	}
}
