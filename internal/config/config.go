package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"repairdesk/internal/backup"
	"repairdesk/internal/gdrive"
	"repairdesk/internal/logger"
)

// Store drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type Config struct {
	// Storage Configuration
	DataDir     string
	StoreDriver string
	DatabaseURL string

	// Backup Configuration
	BackupPrefix      string
	BackupQuietPeriod time.Duration
	BackupRetention   time.Duration
	BackupFlushOnExit bool

	// Google Drive Configuration
	DriveClientID     string
	DriveClientSecret string
	DriveRedirectURL  string
	DriveFolderID     string

	// Google Service Account Configuration
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Google Sheets Configuration
	GoogleSheetURL string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		DataDir:               getEnv("REPAIRDESK_DATA_DIR", defaultDataDir()),
		StoreDriver:           getEnv("STORE_DRIVER", DriverFile),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		BackupPrefix:          getEnv("BACKUP_PREFIX", backup.DefaultPrefix),
		DriveClientID:         getEnv("GDRIVE_CLIENT_ID", ""),
		DriveClientSecret:     getEnv("GDRIVE_CLIENT_SECRET", ""),
		DriveRedirectURL:      getEnv("GDRIVE_REDIRECT_URL", "http://localhost"),
		DriveFolderID:         getEnv("GDRIVE_FOLDER_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.BackupQuietPeriod, err = getDuration("BACKUP_QUIET_PERIOD", backup.DefaultQuietPeriod); err != nil {
		return nil, err
	}
	if config.BackupRetention, err = getDuration("BACKUP_RETENTION", backup.DefaultRetention); err != nil {
		return nil, err
	}
	if config.BackupFlushOnExit, err = getBool("BACKUP_FLUSH_ON_EXIT", true); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverFile:
		if c.DataDir == "" {
			return fmt.Errorf("REPAIRDESK_DATA_DIR is required")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverFile, DriverPostgres, c.StoreDriver)
	}
	if c.BackupQuietPeriod <= 0 {
		return fmt.Errorf("BACKUP_QUIET_PERIOD must be positive")
	}
	if c.BackupRetention <= 0 {
		return fmt.Errorf("BACKUP_RETENTION must be positive")
	}
	if c.BackupPrefix == "" {
		return fmt.Errorf("BACKUP_PREFIX must not be empty")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// GetBackupConfig returns the scheduler configuration.
func (c *Config) GetBackupConfig() backup.Config {
	return backup.Config{
		Prefix:      c.BackupPrefix,
		QuietPeriod: c.BackupQuietPeriod,
		Retention:   c.BackupRetention,
		FlushOnExit: c.BackupFlushOnExit,
	}
}

// GetOAuthConfig returns the Drive OAuth client settings.
func (c *Config) GetOAuthConfig() gdrive.OAuthConfig {
	return gdrive.OAuthConfig{
		ClientID:     c.DriveClientID,
		ClientSecret: c.DriveClientSecret,
		RedirectURL:  c.DriveRedirectURL,
	}
}

// ServiceAccountKey returns the service account JSON key, read from
// GOOGLE_APPLICATION_CREDENTIALS or taken from GOOGLE_CREDENTIALS. It
// returns nil when neither is set.
func (c *Config) ServiceAccountKey() ([]byte, error) {
	if c.GoogleCredentialsFile != "" {
		creds, err := os.ReadFile(c.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return creds, nil
	}
	if c.GoogleCredentialsJSON != "" {
		return []byte(c.GoogleCredentialsJSON), nil
	}
	return nil, nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".repairdesk"
	}
	return filepath.Join(dir, "repairdesk")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return b, nil
}
