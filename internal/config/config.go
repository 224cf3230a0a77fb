package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port          string `envconfig:"PORT" default:"8080"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`

	DatabaseURL   string `envconfig:"DATABASE_URL"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"db/migrations"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	AuthSecret         string `envconfig:"AUTH_SECRET"`
	JWTExpirationHours int    `envconfig:"JWT_EXPIRATION_HOURS" default:"168"`

	MetalAPIKey        string `envconfig:"METAL_API_KEY"`
	CurrencyTTLMinutes int    `envconfig:"CURRENCY_TTL_MINUTES" default:"60"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.JWTExpirationHours < 1 {
		cfg.JWTExpirationHours = 168
	}
	if cfg.CurrencyTTLMinutes < 1 {
		cfg.CurrencyTTLMinutes = 60
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

func (c Config) CurrencyTTL() time.Duration {
	return time.Duration(c.CurrencyTTLMinutes) * time.Minute
}
