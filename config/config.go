package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const EnvDevelopment = "development"

type Config struct {
	Port         int           `env:"PORT,default=8080"`
	AppEnv       string        `env:"APP_ENV,default=development"`
	GinMode      string        `env:"GIN_MODE,default=debug"`
	LogLevel     string        `env:"LOG_LEVEL,default=info"`
	MongoURI     string        `env:"MONGODB_URI,default=mongodb://127.0.0.1:27017"`
	MongoDB      string        `env:"MONGODB_DATABASE,default=postboard"`
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL,default=1h"`
	RedisAddr    string        `env:"REDIS_ADDR"`
	CacheTTL     time.Duration `env:"CACHE_TTL,default=5m"`
	NatsURL      string        `env:"NATS_URL"`
	OtelEndpoint string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	CORSOrigins  string        `env:"CORS_ORIGINS,default=http://localhost:3000"`
	RateLimit    int           `env:"RATE_LIMIT,default=60"`
	RateWindow   time.Duration `env:"RATE_WINDOW,default=1m"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(files...)

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT %d", c.RateLimit)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("invalid RATE_WINDOW %s", c.RateWindow)
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	return lo.FilterMap(strings.Split(c.CORSOrigins, ","), func(o string, _ int) (string, bool) {
		o = strings.TrimSpace(o)
		return o, o != ""
	})
}
