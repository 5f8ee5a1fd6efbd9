package testcfg

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds test-specific configuration for staking client acceptance tests
type Config struct {
	Status      string        `env:"STARGATE_TEST_STATUS" envDefault:"bonded"`
	HTTPTimeout time.Duration `env:"STARGATE_TEST_HTTP_TIMEOUT" envDefault:"30s"`
	BaseURL     string        `env:"STARGATE_TEST_BASE_URL" envDefault:"https://stargate.cosmos.network"`
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
