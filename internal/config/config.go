package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	JWT         JWTConfig         `yaml:"jwt"`
	Security    SecurityConfig    `yaml:"security"`
	Uploads     UploadsConfig     `yaml:"uploads"`
	Render      RenderConfig      `yaml:"render"`
	Logging     LoggingConfig     `yaml:"logging"`
	DefaultUser DefaultUserConfig `yaml:"default_user"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Type     string         `yaml:"type"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Charset  string `yaml:"charset"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type JWTConfig struct {
	Secret    string `yaml:"secret"`
	ExpiresIn string `yaml:"expires_in"`
	Issuer    string `yaml:"issuer"`
}

type SecurityConfig struct {
	BcryptCost int             `yaml:"bcrypt_cost"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

type UploadsConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int64  `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type RenderConfig struct {
	ChromePath   string `yaml:"chrome_path"`
	Timeout      string `yaml:"timeout"`
	QueueSize    int    `yaml:"queue_size"`
	TemplatePath string `yaml:"template_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DefaultUserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
	Role     string `yaml:"role"`
}

// Load reads the configuration file and environment variables
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables
	if jwtSecret := os.Getenv("MEMO_JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}

	if dbType := os.Getenv("MEMO_DB_TYPE"); dbType != "" {
		cfg.Database.Type = dbType
	}

	if dbPath := os.Getenv("MEMO_DB_PATH"); dbPath != "" {
		cfg.Database.SQLite.Path = dbPath
	}

	if pgHost := os.Getenv("MEMO_PG_HOST"); pgHost != "" {
		cfg.Database.Postgres.Host = pgHost
	}

	if pgUser := os.Getenv("MEMO_PG_USER"); pgUser != "" {
		cfg.Database.Postgres.Username = pgUser
	}

	if pgPass := os.Getenv("MEMO_PG_PASSWORD"); pgPass != "" {
		cfg.Database.Postgres.Password = pgPass
	}

	if pgDB := os.Getenv("MEMO_PG_DATABASE"); pgDB != "" {
		cfg.Database.Postgres.Database = pgDB
	}

	if chromePath := os.Getenv("MEMO_CHROME_PATH"); chromePath != "" {
		cfg.Render.ChromePath = chromePath
	}

	// Ensure data directory exists for SQLite
	if cfg.Database.Type == "sqlite" {
		dataDir := filepath.Dir(cfg.Database.SQLite.Path)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Validate MySQL configuration if MySQL is selected
	if cfg.Database.Type == "mysql" {
		if cfg.Database.MySQL.Username == "" {
			return nil, fmt.Errorf("MySQL username is required")
		}
		if cfg.Database.MySQL.Database == "" {
			return nil, fmt.Errorf("MySQL database name is required")
		}
	}

	// Validate Postgres configuration if Postgres is selected
	if cfg.Database.Type == "postgres" {
		if cfg.Database.Postgres.Username == "" {
			return nil, fmt.Errorf("Postgres username is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return nil, fmt.Errorf("Postgres database name is required")
		}
	}

	// Ensure uploads directory exists
	if cfg.Uploads.Dir == "" {
		cfg.Uploads.Dir = "uploads/signatures"
	}
	if err := os.MkdirAll(cfg.Uploads.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	if cfg.Uploads.MaxSizeMB <= 0 {
		cfg.Uploads.MaxSizeMB = 5
	}
	if cfg.Uploads.MaxAgeDays <= 0 {
		cfg.Uploads.MaxAgeDays = 7
	}
	if cfg.Render.QueueSize <= 0 {
		cfg.Render.QueueSize = 32
	}
	if cfg.Render.TemplatePath == "" {
		cfg.Render.TemplatePath = "templates/memo.html"
	}

	return &cfg, nil
}

// RenderTimeout returns the configured render timeout, defaulting to two minutes.
func (c *Config) RenderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// UploadMaxBytes returns the upload size cap in bytes.
func (c *Config) UploadMaxBytes() int64 {
	return c.Uploads.MaxSizeMB * 1024 * 1024
}
