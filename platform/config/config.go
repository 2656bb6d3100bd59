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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// InternalAuthConfig provides the API key protecting internal endpoints.
type InternalAuthConfig interface {
	GetInternalAPIKey() string
}

// VapiConfig provides settings for the Vapi voice-AI provider.
type VapiConfig interface {
	GetVapiBaseURL() string
	GetVapiAPIKey() string
	GetVapiWebhookSecret() string
	IsVapiEnabled() bool
}

// SlackConfig provides settings for the Slack notification sink.
type SlackConfig interface {
	GetSlackWebhookURL() string
	IsSlackEnabled() bool
}

// AttioConfig provides settings for the Attio CRM sink.
type AttioConfig interface {
	GetAttioAPIKey() string
	GetAttioObjectSlug() string
	IsAttioEnabled() bool
}

// MetaConfig provides settings for the Meta Conversions API sink and
// the Lead Ads import source.
type MetaConfig interface {
	GetMetaGraphVersion() string
	GetMetaPixelID() string
	GetMetaAccessToken() string
	IsMetaEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetRecordingsBucket() string
	IsMinIOEnabled() bool
}

// EmailConfig provides settings for the ops summary email sender.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetOpsEmail() string
	IsEmailEnabled() bool
}

// ImportConfig provides settings for scheduled reconciliation imports.
type ImportConfig interface {
	GetImportInterval() time.Duration
	GetImportWindowHours() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	CORSAllowAll bool
	CORSOrigins  []string

	InternalAPIKey string

	VapiBaseURL       string
	VapiAPIKey        string
	VapiWebhookSecret string

	SlackWebhookURL string

	AttioAPIKey     string
	AttioObjectSlug string

	MetaGraphVersion string
	MetaPixelID      string
	MetaAccessToken  string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	MinIOEndpoint    string
	MinIOAccessKey   string
	MinIOSecretKey   string
	MinIOUseSSL      bool
	RecordingsBucket string

	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
	OpsEmail         string

	ImportInterval    time.Duration
	ImportWindowHours int
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetInternalAPIKey() string { return c.InternalAPIKey }

func (c *Config) GetVapiBaseURL() string       { return c.VapiBaseURL }
func (c *Config) GetVapiAPIKey() string        { return c.VapiAPIKey }
func (c *Config) GetVapiWebhookSecret() string { return c.VapiWebhookSecret }
func (c *Config) IsVapiEnabled() bool          { return c.VapiAPIKey != "" }

func (c *Config) GetSlackWebhookURL() string { return c.SlackWebhookURL }
func (c *Config) IsSlackEnabled() bool       { return c.SlackWebhookURL != "" }

func (c *Config) GetAttioAPIKey() string     { return c.AttioAPIKey }
func (c *Config) GetAttioObjectSlug() string { return c.AttioObjectSlug }
func (c *Config) IsAttioEnabled() bool       { return c.AttioAPIKey != "" }

func (c *Config) GetMetaGraphVersion() string { return c.MetaGraphVersion }
func (c *Config) GetMetaPixelID() string      { return c.MetaPixelID }
func (c *Config) GetMetaAccessToken() string  { return c.MetaAccessToken }
func (c *Config) IsMetaEnabled() bool {
	return c.MetaPixelID != "" && c.MetaAccessToken != ""
}

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetMinIOEndpoint() string    { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string   { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string   { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool        { return c.MinIOUseSSL }
func (c *Config) GetRecordingsBucket() string { return c.RecordingsBucket }
func (c *Config) IsMinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOAccessKey != "" && c.MinIOSecretKey != ""
}

func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetOpsEmail() string         { return c.OpsEmail }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != ""
}

func (c *Config) GetImportInterval() time.Duration { return c.ImportInterval }
func (c *Config) GetImportWindowHours() int        { return c.ImportWindowHours }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, loading a .env file first
// when present. Sink credentials are optional: a sink with missing credentials
// reports itself unconfigured and fails closed instead of panicking.
func Load() (*Config, error) {
	// Best-effort: .env is only used for local development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		CORSAllowAll: getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:  splitCSV(os.Getenv("CORS_ORIGINS")),

		InternalAPIKey: os.Getenv("INTERNAL_API_KEY"),

		VapiBaseURL:       getEnv("VAPI_BASE_URL", "https://api.vapi.ai"),
		VapiAPIKey:        os.Getenv("VAPI_API_KEY"),
		VapiWebhookSecret: os.Getenv("VAPI_WEBHOOK_SECRET"),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),

		AttioAPIKey:     os.Getenv("ATTIO_API_KEY"),
		AttioObjectSlug: getEnv("ATTIO_OBJECT_SLUG", "people"),

		MetaGraphVersion: getEnv("META_GRAPH_VERSION", "v21.0"),
		MetaPixelID:      os.Getenv("META_PIXEL_ID"),
		MetaAccessToken:  os.Getenv("META_ACCESS_TOKEN"),

		RedisURL:         os.Getenv("REDIS_URL"),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		MinIOEndpoint:    os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:   os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:   os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:      getBoolEnv("MINIO_USE_SSL", false),
		RecordingsBucket: getEnv("MINIO_BUCKET_CALL_RECORDINGS", "call-recordings"),

		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "CallOps"),
		EmailFromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),
		OpsEmail:         os.Getenv("OPS_EMAIL"),

		ImportInterval:    getDurationEnv("IMPORT_INTERVAL", 6*time.Hour),
		ImportWindowHours: getIntEnv("IMPORT_WINDOW_HOURS", 24),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
