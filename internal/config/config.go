// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases (always absolute)
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool

	// Browser origins allowed to call the API and open live streams.
	// Empty = same origin only.
	AllowedOrigins []string

	// Cron schedules (robfig/cron with seconds field)
	LivePushSchedule       string
	WALCheckSchedule       string
	IntegrityCheckSchedule string

	Backup BackupConfig
}

// BackupConfig holds the S3-compatible object storage target for database backups
type BackupConfig struct {
	Schedule        string
	Bucket          string
	Endpoint        string // Empty = AWS default endpoint resolution
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int // 0 = keep everything beyond the minimum
}

// Enabled reports whether enough of the backup target is configured to run backups
func (b BackupConfig) Enabled() bool {
	return b.Bucket != "" && b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STACKTRACK_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogPretty:              getEnvAsBool("LOG_PRETTY", true),
		Port:                   getEnvAsInt("PORT", 8080),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		AllowedOrigins:         getEnvAsList("ALLOWED_ORIGINS"),
		LivePushSchedule:       getEnv("LIVE_PUSH_SCHEDULE", "@every 30s"),
		WALCheckSchedule:       getEnv("WAL_CHECK_SCHEDULE", "@every 1h"),
		IntegrityCheckSchedule: getEnv("INTEGRITY_CHECK_SCHEDULE", "0 30 4 * * *"),
		Backup: BackupConfig{
			Schedule:        getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"), // 3 AM daily
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			Region:          getEnv("BACKUP_REGION", "auto"),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	b := c.Backup
	partial := b.Bucket != "" || b.AccessKeyID != "" || b.SecretAccessKey != ""
	if partial && !b.Enabled() {
		return fmt.Errorf("backup target is partially configured: bucket, access key id and secret access key are all required")
	}
	if b.RetentionDays < 0 {
		return fmt.Errorf("invalid backup retention: %d days", b.RetentionDays)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}
