package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the server settings read from DEALDESK_* environment variables.
type Config struct {
	DatabaseURL string `env:"DEALDESK_DATABASE_URL"` // required
	GRPCAddr    string `env:"DEALDESK_GRPC_ADDR" envDefault:":9090"`
	HTTPAddr    string `env:"DEALDESK_HTTP_ADDR" envDefault:":8080"`
	NATSURL     string `env:"DEALDESK_NATS_URL"` // empty = no bus, SSE only

	// Auth. A static token and a JWT secret may both be set; with neither,
	// auth is disabled.
	AuthToken   string `env:"DEALDESK_AUTH_TOKEN"`
	AuthActor   string `env:"DEALDESK_AUTH_ACTOR" envDefault:"service"`
	JWTSecret   string `env:"DEALDESK_JWT_SECRET"`
	JWTIssuer   string `env:"DEALDESK_JWT_ISSUER"`
	LoginURL    string `env:"DEALDESK_LOGIN_URL" envDefault:"/auth/login"`
	LogoutURL   string `env:"DEALDESK_LOGOUT_URL" envDefault:"/auth/logout"`
	PublicURL   string `env:"DEALDESK_PUBLIC_URL" envDefault:"http://localhost:8080"`
	CORSOrigins []string `env:"DEALDESK_CORS_ORIGINS" envSeparator:","`

	// Sync settings
	SyncInterval   time.Duration `env:"DEALDESK_SYNC_INTERVAL" envDefault:"3m"` // 0 = disabled
	SyncS3Bucket   string        `env:"DEALDESK_SYNC_S3_BUCKET"`                // enables S3 when set
	SyncS3Endpoint string        `env:"DEALDESK_SYNC_S3_ENDPOINT"`              // custom endpoint for MinIO
	SyncS3Region   string        `env:"DEALDESK_SYNC_S3_REGION" envDefault:"eu-west-3"`
	SyncS3Key      string        `env:"DEALDESK_SYNC_S3_KEY" envDefault:"dealdesk/backup.jsonl"`
	SyncGitRepo    string        `env:"DEALDESK_SYNC_GIT_REPO"` // enables git when set; path to clone
	SyncGitFile    string        `env:"DEALDESK_SYNC_GIT_FILE" envDefault:"dealdesk.jsonl"`
	SyncGitBranch  string        `env:"DEALDESK_SYNC_GIT_BRANCH" envDefault:"main"`
}

// Load parses the server configuration from the environment.
func Load() (*Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.DatabaseURL == "" {
		return nil, errors.New("DEALDESK_DATABASE_URL is required")
	}
	if c.SyncInterval < 0 {
		return nil, fmt.Errorf("DEALDESK_SYNC_INTERVAL: must not be negative, got %s", c.SyncInterval)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return nil, errors.New("DEALDESK_JWT_SECRET must be at least 32 bytes")
	}
	return &c, nil
}

// AuthEnabled reports whether requests must carry credentials.
func (c *Config) AuthEnabled() bool {
	return c.AuthToken != "" || c.JWTSecret != ""
}

// ClientConfig holds the CLI settings. Values from the environment override
// the active remote.
type ClientConfig struct {
	URL     string `env:"DEALDESK_URL"`
	Token   string `env:"DEALDESK_TOKEN"`
	Actor   string `env:"DEALDESK_ACTOR"`
	NATSURL string `env:"DEALDESK_NATS_URL"`

	// FallbackDossierID is used by the interaction form when no dossier is given.
	FallbackDossierID string `env:"DEALDESK_FALLBACK_DOSSIER"`

	ReminderPoll time.Duration `env:"DEALDESK_REMINDER_POLL" envDefault:"60s"`
}

// LoadClient parses the CLI configuration from the environment.
func LoadClient() (*ClientConfig, error) {
	var c ClientConfig
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.URL != "" {
		if _, err := url.ParseRequestURI(c.URL); err != nil {
			return nil, fmt.Errorf("DEALDESK_URL: %w", err)
		}
	}
	if c.ReminderPoll <= 0 {
		return nil, fmt.Errorf("DEALDESK_REMINDER_POLL: must be positive, got %s", c.ReminderPoll)
	}
	return &c, nil
}
