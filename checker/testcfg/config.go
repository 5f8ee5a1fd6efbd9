package testcfg

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds test-specific configuration for checker acceptance tests
// NOTE: timeouts are shorter than in production
type Config struct {
	StargateURL       string        `env:"CHECKER_TEST_STARGATE_URL" envDefault:"https://stargate.cosmos.network"`
	HTTPClientTimeout time.Duration `env:"CHECKER_TEST_HTTP_CLIENT_TIMEOUT" envDefault:"30s"`
	RedisURL          string        `env:"CHECKER_TEST_REDIS_URL" envDefault:"redis://redis:6379/0"`

	// Test execution timeouts
	ShutdownTimeout time.Duration `env:"CHECKER_TEST_SHUTDOWN_TIMEOUT" envDefault:"2s"`
}

// parseConfig wraps env.Parse to return (Config, error) for use with env.Must
func parseConfig() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

// New loads test configuration from environment variables
func New() Config {
	return env.Must(parseConfig())
}
