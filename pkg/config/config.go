// Package config loads application configuration from config.yaml with
// environment variable overrides. Secrets come from the environment only.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for querylens-engine.
// Environment variables always override YAML values.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// MigrationsPath is the directory holding SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	// Storage configuration for uploaded dataset files
	Storage StorageConfig `yaml:"storage"`

	// AI model endpoint for query and insight generation
	AI AIConfig `yaml:"ai"`

	// Upload and processing limits
	Limits LimitsConfig `yaml:"limits"`

	// Background job settings
	Jobs JobsConfig `yaml:"jobs"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"querylens"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"querylens_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// StorageConfig selects the object store backend for uploaded files.
type StorageConfig struct {
	// Backend is "filesystem" or "minio".
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"filesystem"`

	// Root directory for the filesystem backend.
	Root string `yaml:"root" env:"STORAGE_ROOT" env-default:"data/uploads"`

	// MinIO settings, used when backend is "minio".
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"-" env:"MINIO_ACCESS_KEY"` // Secret - not in YAML
	SecretKey string `yaml:"-" env:"MINIO_SECRET_KEY"` // Secret - not in YAML
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"querylens-datasets"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

// AIConfig holds the OpenAI-compatible model endpoint settings.
type AIConfig struct {
	BaseURL string `yaml:"base_url" env:"AI_BASE_URL" env-default:""`
	Model   string `yaml:"model" env:"AI_MODEL" env-default:""`
	APIKey  string `yaml:"-" env:"AI_API_KEY"` // Secret - not in YAML
}

// IsAvailable returns true if an AI endpoint is configured.
func (c *AIConfig) IsAvailable() bool {
	return c.BaseURL != "" && c.Model != ""
}

// LimitsConfig holds upload and processing limits.
type LimitsConfig struct {
	// MaxUploadBytes caps uploaded file size. Default 100 MiB.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"104857600"`

	// MaxInsightsPerDataset caps insights produced in one generation run.
	MaxInsightsPerDataset int `yaml:"max_insights_per_dataset" env:"MAX_INSIGHTS_PER_DATASET" env-default:"8"`

	// ResultTTLMinutes is how long cached query results stay reusable
	// for follow-up questions.
	ResultTTLMinutes int `yaml:"result_ttl_minutes" env:"RESULT_TTL_MINUTES" env-default:"30"`
}

// JobsConfig holds background job scheduling settings.
type JobsConfig struct {
	// InsightSweepIntervalMinutes is how often the sweep looks for ready
	// datasets without recent insights. Zero disables the sweep.
	InsightSweepIntervalMinutes int `yaml:"insight_sweep_interval_minutes" env:"INSIGHT_SWEEP_INTERVAL_MINUTES" env-default:"60"`

	// InsightRecencyHours skips datasets whose newest insight is younger
	// than this.
	InsightRecencyHours int `yaml:"insight_recency_hours" env:"INSIGHT_RECENCY_HOURS" env-default:"24"`

	// CleanupIntervalHours is how often stale data is removed. Zero
	// disables cleanup.
	CleanupIntervalHours int `yaml:"cleanup_interval_hours" env:"CLEANUP_INTERVAL_HOURS" env-default:"24"`

	// FailedDatasetRetentionDays keeps failed datasets around this long
	// before deletion.
	FailedDatasetRetentionDays int `yaml:"failed_dataset_retention_days" env:"FAILED_DATASET_RETENTION_DAYS" env-default:"7"`

	// ResultRetentionDays keeps stored query result rows this long.
	ResultRetentionDays int `yaml:"result_retention_days" env:"RESULT_RETENTION_DAYS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, environment variables and
// defaults alone are used.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	err := cleanenv.ReadConfig("config.yaml", cfg)
	if errors.Is(err, os.ErrNotExist) {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if cfg.Limits.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("max_upload_bytes must be positive")
	}

	return cfg, nil
}

// ResultTTL returns the follow-up cache TTL as a duration.
func (c *LimitsConfig) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLMinutes) * time.Minute
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
