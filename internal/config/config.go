package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	HomeCurrency string        `env:"HOME_CURRENCY" envDefault:"USD"`
	LockTimeout  time.Duration `env:"LOCK_TIMEOUT" envDefault:"2s"`
	MaxRetries   int           `env:"MAX_RETRIES" envDefault:"3"`
	SkipAudit    bool          `env:"SKIP_AUDIT" envDefault:"false"`

	RatesBase            string        `env:"RATES_BASE" envDefault:"USD"`
	RatesURL             string        `env:"RATES_URL"`
	RatesRefreshInterval time.Duration `env:"RATES_REFRESH_INTERVAL" envDefault:"1h"`
	RatesHTTPTimeout     time.Duration `env:"RATES_HTTP_TIMEOUT" envDefault:"10s"`
	RatesCacheTTL        time.Duration `env:"RATES_CACHE_TTL" envDefault:"24h"`
	RatesMaxAge          time.Duration `env:"RATES_MAX_AGE" envDefault:"48h"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Load reads an optional .env file, then the process environment. Variables
// already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.LockTimeout <= 0 {
		return fmt.Errorf("LOCK_TIMEOUT must be positive, got %s", c.LockTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must not be negative, got %d", c.MaxRetries)
	}
	if c.RatesRefreshInterval <= 0 {
		return fmt.Errorf("RATES_REFRESH_INTERVAL must be positive, got %s", c.RatesRefreshInterval)
	}
	if c.RatesHTTPTimeout <= 0 {
		return fmt.Errorf("RATES_HTTP_TIMEOUT must be positive, got %s", c.RatesHTTPTimeout)
	}
	if len(c.HomeCurrency) != 3 {
		return fmt.Errorf("HOME_CURRENCY must be a 3-letter code, got %q", c.HomeCurrency)
	}
	if len(c.RatesBase) != 3 {
		return fmt.Errorf("RATES_BASE must be a 3-letter code, got %q", c.RatesBase)
	}
	return nil
}
