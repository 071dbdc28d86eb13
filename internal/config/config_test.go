package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allEnvVars = []string{
	"DATABASE_URL", "HTTP_ADDR", "NATS_URL", "JWT_SECRET", "TOKEN_TTL",
	"BACKUP_INTERVAL", "BACKUP_S3_BUCKET", "BACKUP_S3_ENDPOINT", "BACKUP_S3_REGION", "BACKUP_S3_KEY",
	"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(EnvPrefix+key, "")
		os.Unsetenv(EnvPrefix + key)
	}
}

// noEnvFile points Load at a file that does not exist.
func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantHTTPAddr string
		wantNATSURL  string
		wantTTL      time.Duration
	}{
		{
			name:         "Defaults",
			env:          map[string]string{},
			wantHTTPAddr: ":8080",
			wantTTL:      12 * time.Hour,
		},
		{
			name: "Custom",
			env: map[string]string{
				"PHARMACY_DATABASE_URL": "postgres://db:5432/pharmacy",
				"PHARMACY_HTTP_ADDR":    ":3000",
				"PHARMACY_NATS_URL":     "nats://localhost:4222",
				"PHARMACY_TOKEN_TTL":    "30m",
			},
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
			wantTTL:      30 * time.Minute,
		},
		{
			name:    "BadDuration",
			env:     map[string]string{"PHARMACY_TOKEN_TTL": "soon"},
			wantErr: true,
		},
		{
			name:    "BadLogFormat",
			env:     map[string]string{"PHARMACY_LOG_FORMAT": "xml"},
			wantErr: true,
		},
		{
			name:    "NegativeBackupInterval",
			env:     map[string]string{"PHARMACY_BACKUP_INTERVAL": "-1m"},
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			cfg, err := Load(noEnvFile(t))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
			if cfg.TokenTTL != tc.wantTTL {
				t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, tc.wantTTL)
			}
		})
	}
}

func TestLoad_BackupDefaults(t *testing.T) {
	clearAllEnv(t)
	cfg, err := Load(noEnvFile(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackupInterval != 0 {
		t.Errorf("BackupInterval = %v, want 0", cfg.BackupInterval)
	}
	if cfg.BackupS3Region != "us-east-1" {
		t.Errorf("BackupS3Region = %q", cfg.BackupS3Region)
	}
	if cfg.BackupS3Key != "pharmacy/backup.jsonl" {
		t.Errorf("BackupS3Key = %q", cfg.BackupS3Key)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("log = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearAllEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "PHARMACY_JWT_SECRET=from-file\nPHARMACY_HTTP_ADDR=:9999\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	// Variables already in the environment win over the file.
	t.Setenv("PHARMACY_HTTP_ADDR", ":7000")
	t.Cleanup(func() { os.Unsetenv("PHARMACY_JWT_SECRET") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.JWTSecret != "from-file" {
		t.Errorf("JWTSecret = %q", cfg.JWTSecret)
	}
	if cfg.HTTPAddr != ":7000" {
		t.Errorf("HTTPAddr = %q, want :7000", cfg.HTTPAddr)
	}
}

func TestRequire(t *testing.T) {
	c := &Config{}
	if err := c.RequireDatabase(); err == nil {
		t.Error("RequireDatabase: expected error")
	}
	if err := c.RequireJWTSecret(); err == nil {
		t.Error("RequireJWTSecret: expected error")
	}
	c.DatabaseURL = "postgres://localhost/pharmacy"
	c.JWTSecret = "s"
	if err := c.RequireDatabase(); err != nil {
		t.Error(err)
	}
	if err := c.RequireJWTSecret(); err != nil {
		t.Error(err)
	}
}
