package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"changeportal"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"text"`

	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`

	Store StoreConfig
	Watch WatchConfig
}

type StoreConfig struct {
	BaseURL     string        `env:"STORE_BASE_URL" envDefault:"http://localhost:9000/api"`
	AuthToken   string        `env:"STORE_AUTH_TOKEN"`
	CacheTTL    time.Duration `env:"STORE_CACHE_TTL" envDefault:"5m"`
	MaxAttempts int           `env:"STORE_MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay   time.Duration `env:"STORE_BASE_DELAY" envDefault:"1s"`
	// requests per second, zero means unlimited
	RateLimit float64       `env:"STORE_RATE_LIMIT" envDefault:"0"`
	Timeout   time.Duration `env:"STORE_TIMEOUT" envDefault:"30s"`
}

type WatchConfig struct {
	FastInterval time.Duration `env:"WATCH_FAST_INTERVAL" envDefault:"2s"`
	SlowInterval time.Duration `env:"WATCH_SLOW_INTERVAL" envDefault:"5s"`
	SlowAfter    time.Duration `env:"WATCH_SLOW_AFTER" envDefault:"20s"`
	MaxDuration  time.Duration `env:"WATCH_MAX_DURATION" envDefault:"90s"`
}

func ParseConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
