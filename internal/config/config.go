// Package config loads process configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`

	DBHost     string `env:"DB_HOST,default=localhost"`
	DBPort     string `env:"DB_PORT,default=5432"`
	DBUser     string `env:"DB_USER,default=postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME,default=quiz_master"`
	DBSSLMode  string `env:"DB_SSLMODE,default=disable"`

	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	RedisDB   int    `env:"REDIS_DB,default=0"`

	JWTSecret   string `env:"JWT_SECRET,required"`
	CORSOrigins string `env:"CORS_ORIGINS,default=*"`

	ArtifactDir     string        `env:"ARTIFACT_DIR,default=./artifacts"`
	JobWorkers      int           `env:"JOB_WORKERS,default=4"`
	JobQueueSize    int           `env:"JOB_QUEUE_SIZE,default=64"`
	JobResultTTL    time.Duration `env:"JOB_RESULT_TTL,default=1h"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL,default=60s"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS,default=170"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST,default=200"`

	SMTPHost     string `env:"SMTP_HOST,default=localhost"`
	SMTPPort     int    `env:"SMTP_PORT,default=25"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM,default=no-reply@example.com"`

	ReminderCron      string `env:"REMINDER_CRON,default=0 18 * * *"`
	MonthlyReportCron string `env:"MONTHLY_REPORT_CRON,default=0 6 1 * *"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// Load reads .env (if present) and decodes the environment into a Config.
// The returned bool reports whether a .env file was found.
func Load(files ...string) (*Config, bool, error) {
	foundDotenv := godotenv.Load(files...) == nil

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, foundDotenv, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, foundDotenv, err
	}
	return &cfg, foundDotenv, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.JobWorkers <= 0 {
		return fmt.Errorf("JOB_WORKERS must be positive, got %d", c.JobWorkers)
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive, got %d", c.JobQueueSize)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
