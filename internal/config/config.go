// Package config loads pharmad settings from PHARMACY_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name below.
const EnvPrefix = "PHARMACY_"

type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`                  // required unless serving from memory
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	NATSURL     string `env:"NATS_URL"` // empty = no events

	JWTSecret string        `env:"JWT_SECRET"` // required by serve
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"12h"`

	// AdminPassword creates an "admin" login when serving from memory.
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Backups
	BackupInterval   time.Duration `env:"BACKUP_INTERVAL" envDefault:"0"` // 0 = disabled
	BackupS3Bucket   string        `env:"BACKUP_S3_BUCKET"`
	BackupS3Endpoint string        `env:"BACKUP_S3_ENDPOINT"` // custom endpoint for MinIO
	BackupS3Region   string        `env:"BACKUP_S3_REGION" envDefault:"us-east-1"`
	BackupS3Key      string        `env:"BACKUP_S3_KEY" envDefault:"pharmacy/backup.jsonl"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"` // text or json
	LogFile       string `env:"LOG_FILE"`                     // empty = stderr only
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

// Load reads envFile (".env" when empty; a missing file is ignored) into the
// process environment without overriding variables already set, then parses
// the environment.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	c := &Config{}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return nil, fmt.Errorf("%sLOG_FORMAT: must be text or json, got %q", EnvPrefix, c.LogFormat)
	}
	if c.BackupInterval < 0 {
		return nil, fmt.Errorf("%sBACKUP_INTERVAL: must not be negative", EnvPrefix)
	}
	return c, nil
}

func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%sDATABASE_URL is required", EnvPrefix)
	}
	return nil
}

func (c *Config) RequireJWTSecret() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("%sJWT_SECRET is required", EnvPrefix)
	}
	return nil
}
