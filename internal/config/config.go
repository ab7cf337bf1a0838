package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	CatalogBackendFile     = "file"
	CatalogBackendPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// DataConfig locates the flat files loaded at start and saved at exit
type DataConfig struct {
	UsersFile string `yaml:"users_file"`
	BooksFile string `yaml:"books_file"`
}

// CatalogConfig selects where book availability is kept
type CatalogConfig struct {
	Backend string `yaml:"backend"` // "file" or "postgres"
}

// DatabaseConfig contains PostgreSQL connection settings for the postgres catalog backend
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains cron schedule settings for the report jobs
type SchedulerConfig struct {
	ReportOverdueLoans     string `yaml:"report_overdue_loans"`
	ReportOutstandingFines string `yaml:"report_outstanding_fines"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, applying environment overrides and defaults
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is given
func Default() *Config {
	cfg := &Config{}
	cfg.overrideWithEnv()
	// Defaults cannot fail validation for the file backend.
	_ = cfg.Validate()
	return cfg
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Data files
	if val := os.Getenv("LEDGER_USERS_FILE"); val != "" {
		c.Data.UsersFile = val
	}
	if val := os.Getenv("LEDGER_BOOKS_FILE"); val != "" {
		c.Data.BooksFile = val
	}

	// Catalog
	if val := os.Getenv("CATALOG_BACKEND"); val != "" {
		c.Catalog.Backend = val
	}

	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Data.UsersFile == "" {
		c.Data.UsersFile = "users.txt"
	}
	if c.Data.BooksFile == "" {
		c.Data.BooksFile = "books.txt"
	}

	c.Catalog.Backend = strings.ToLower(c.Catalog.Backend)
	switch c.Catalog.Backend {
	case "":
		c.Catalog.Backend = CatalogBackendFile
	case CatalogBackendFile:
	case CatalogBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for the postgres catalog")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required for the postgres catalog")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required for the postgres catalog")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.Port < 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Database.Port)
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("unknown catalog backend: %q", c.Catalog.Backend)
	}

	// Scheduler defaults
	if c.Scheduler.ReportOverdueLoans == "" {
		c.Scheduler.ReportOverdueLoans = "0 0 2 * * *" // 2 AM UTC
	}
	if c.Scheduler.ReportOutstandingFines == "" {
		c.Scheduler.ReportOutstandingFines = "0 0 3 * * 1" // Mondays at 3 AM UTC
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
