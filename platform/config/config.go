// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// VoiceAgentConfig provides settings for the outbound voice-call provider.
type VoiceAgentConfig interface {
	GetVoiceAgentBaseURL() string
	GetVoiceAgentAPIKey() string
	GetVoiceAgentID() string
	GetVoiceAgentFromNumber() string
	GetCallWebhookURL() string
}

// CalSyncConfig provides settings for the external scheduling provider API.
type CalSyncConfig interface {
	GetCalSyncBaseURL() string
	GetCalSyncAPIKey() string
}

// NotifierConfig provides settings for the real-time notifier.
type NotifierConfig interface {
	GetRedisURL() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetImportArchiveBucket() string
	IsStorageEnabled() bool
}

// EmailConfig provides settings for customer email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool
	AppBaseURL      string

	VoiceAgentBaseURL    string
	VoiceAgentAPIKey     string
	VoiceAgentID         string
	VoiceAgentFromNumber string

	CalSyncBaseURL string
	CalSyncAPIKey  string

	RedisURL string

	MinIOEndpoint       string
	MinIOAccessKey      string
	MinIOSecretKey      string
	MinIOUseSSL         bool
	ImportArchiveBucket string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
}

// Load reads configuration from environment variables (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:      strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),

		VoiceAgentBaseURL:    strings.TrimRight(getEnv("VOICE_AGENT_BASE_URL", "https://api.retellai.com"), "/"),
		VoiceAgentAPIKey:     getEnv("VOICE_AGENT_API_KEY", ""),
		VoiceAgentID:         getEnv("VOICE_AGENT_ID", ""),
		VoiceAgentFromNumber: getEnv("VOICE_AGENT_FROM_NUMBER", ""),

		CalSyncBaseURL: strings.TrimRight(getEnv("CALSYNC_BASE_URL", "https://api.cal.com"), "/"),
		CalSyncAPIKey:  getEnv("CALSYNC_API_KEY", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		MinIOEndpoint:       getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:      getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:      getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:         strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		ImportArchiveBucket: getEnv("MINIO_BUCKET_IMPORT_ARCHIVE", "customer-import-archive"),

		EmailEnabled:     strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         smtpPort,
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "CRM"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		HTTPReadTimeout:  15 * time.Second,
		HTTPWriteTimeout: 30 * time.Second,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetVoiceAgentBaseURL() string    { return c.VoiceAgentBaseURL }
func (c *Config) GetVoiceAgentAPIKey() string     { return c.VoiceAgentAPIKey }
func (c *Config) GetVoiceAgentID() string         { return c.VoiceAgentID }
func (c *Config) GetVoiceAgentFromNumber() string { return c.VoiceAgentFromNumber }

// GetCallWebhookURL is the public callback URL the voice provider posts
// call-status updates to. Empty when APP_BASE_URL is not configured, which
// callers must treat as "dispatch not possible".
func (c *Config) GetCallWebhookURL() string {
	if c.AppBaseURL == "" {
		return ""
	}
	return c.AppBaseURL + "/api/v1/webhooks/call-updates"
}

func (c *Config) GetCalSyncBaseURL() string { return c.CalSyncBaseURL }
func (c *Config) GetCalSyncAPIKey() string  { return c.CalSyncAPIKey }

func (c *Config) GetRedisURL() string { return c.RedisURL }

func (c *Config) GetMinIOEndpoint() string       { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string      { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string      { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool           { return c.MinIOUseSSL }
func (c *Config) GetImportArchiveBucket() string { return c.ImportArchiveBucket }
func (c *Config) IsStorageEnabled() bool         { return c.MinIOEndpoint != "" }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled && c.SMTPHost != "" }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
