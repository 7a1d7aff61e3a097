package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backend identifiers.
const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Database DatabaseConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server configuration for the status API.
type ServerConfig struct {
	Port string
	Env  string
}

// SourceConfig holds settings for fetching files from the Property Price
// Register website.
type SourceConfig struct {
	BaseURL     string
	DownloadDir string
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	MinFileSize int64
}

// PipelineConfig holds consolidation settings.
type PipelineConfig struct {
	// ChunkSize bounds how many candidate rows are normalized and folded into
	// the dedup set at a time.
	ChunkSize int
	// MalformedTolerance is the maximum ratio of malformed rows per batch
	// before the run is failed outright.
	MalformedTolerance float64
}

// StorageConfig selects and configures the consolidated dataset store.
type StorageConfig struct {
	Backend   string
	DataDir   string
	StateFile string
}

// DatabaseConfig holds PostgreSQL connection configuration. Only required
// when the postgres storage backend is selected.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration for the status API.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("PPR_BASE_URL", "https://www.propertypriceregister.ie/website/npsra/ppr/npsra-ppr.nsf/Downloads")
	v.SetDefault("DOWNLOAD_DIR", "data/raw")
	v.SetDefault("DOWNLOAD_MAX_RETRIES", 3)
	v.SetDefault("DOWNLOAD_RETRY_DELAY", "5s")
	v.SetDefault("DOWNLOAD_TIMEOUT", "30s")
	v.SetDefault("DOWNLOAD_MIN_FILE_SIZE", 1024)
	v.SetDefault("CHUNK_SIZE", 100000)
	v.SetDefault("MALFORMED_TOLERANCE", 0.1)
	v.SetDefault("STORAGE_BACKEND", BackendCSV)
	v.SetDefault("DATA_DIR", "data/processed")
	v.SetDefault("STATE_FILE", "data/metadata/pipeline_state.json")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "ppr")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Source: SourceConfig{
			BaseURL:     v.GetString("PPR_BASE_URL"),
			DownloadDir: v.GetString("DOWNLOAD_DIR"),
			MaxRetries:  v.GetInt("DOWNLOAD_MAX_RETRIES"),
			RetryDelay:  v.GetDuration("DOWNLOAD_RETRY_DELAY"),
			Timeout:     v.GetDuration("DOWNLOAD_TIMEOUT"),
			MinFileSize: v.GetInt64("DOWNLOAD_MIN_FILE_SIZE"),
		},
		Pipeline: PipelineConfig{
			ChunkSize:          v.GetInt("CHUNK_SIZE"),
			MalformedTolerance: v.GetFloat64("MALFORMED_TOLERANCE"),
		},
		Storage: StorageConfig{
			Backend:   v.GetString("STORAGE_BACKEND"),
			DataDir:   v.GetString("DATA_DIR"),
			StateFile: v.GetString("STATE_FILE"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ConsolidatedFile is the path of the consolidated dataset when the CSV
// backend is selected.
func (c *Config) ConsolidatedFile() string {
	return filepath.Join(c.Storage.DataDir, "ppr_consolidated.csv")
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Source.BaseURL == "" {
		return fmt.Errorf("PPR_BASE_URL is required")
	}
	if c.Source.MaxRetries < 1 {
		return fmt.Errorf("DOWNLOAD_MAX_RETRIES must be at least 1")
	}

	if c.Pipeline.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be at least 1")
	}
	if c.Pipeline.MalformedTolerance < 0 || c.Pipeline.MalformedTolerance > 1 {
		return fmt.Errorf("MALFORMED_TOLERANCE must be between 0 and 1")
	}

	switch c.Storage.Backend {
	case BackendCSV:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Port == "" {
			return fmt.Errorf("DB_PORT is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
		if c.Database.PoolMin < 0 {
			return fmt.Errorf("DB_POOL_MIN must be non-negative")
		}
		if c.Database.PoolMax < 1 {
			return fmt.Errorf("DB_POOL_MAX must be at least 1")
		}
		if c.Database.PoolMin > c.Database.PoolMax {
			return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: %s, %s", BackendCSV, BackendPostgres)
	}

	if c.Storage.StateFile == "" {
		return fmt.Errorf("STATE_FILE is required")
	}

	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
