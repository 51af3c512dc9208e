package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the sync service
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Smartlead SmartleadConfig `yaml:"smartlead"`
	Instantly InstantlyConfig `yaml:"instantly"`
	Sync      SyncConfig      `yaml:"sync"`
	Redis     RedisConfig     `yaml:"redis"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Namespace NamespaceConfig `yaml:"namespace"`
}

// ServerConfig holds HTTP status server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeMins int    `yaml:"conn_max_life_mins"`
}

// ConnMaxLifetime returns the connection max lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifeMins) * time.Minute
}

// SmartleadConfig holds Smartlead API configuration
type SmartleadConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
	PageSize       int    `yaml:"page_size"`
}

// Timeout returns the configured timeout as a duration
func (c SmartleadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks that required credentials are present when enabled
func (c SmartleadConfig) Validate() error {
	if c.Enabled && c.APIKey == "" {
		return fmt.Errorf("smartlead: api_key is required when enabled")
	}
	return nil
}

// InstantlyConfig holds Instantly API configuration
type InstantlyConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Enabled        bool   `yaml:"enabled"`
	PageSize       int    `yaml:"page_size"`
}

// Timeout returns the configured timeout as a duration
func (c InstantlyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate checks that required credentials are present when enabled
func (c InstantlyConfig) Validate() error {
	if c.Enabled && c.APIKey == "" {
		return fmt.Errorf("instantly: api_key is required when enabled")
	}
	return nil
}

// SyncConfig holds sync scheduling configuration
type SyncConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	LookbackDays    int `yaml:"lookback_days"`
}

// Interval returns the sync interval as a duration
func (c SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// RedisConfig holds the optional seen-key cache settings
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Enabled    bool   `yaml:"enabled"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// TTL returns the seen-key expiry as a duration
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// ArchiveConfig holds S3 run-report archival settings
type ArchiveConfig struct {
	Enabled  bool   `yaml:"enabled"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	Prefix   string `yaml:"prefix"`
}

// NamespaceConfig holds namespace resolution settings
type NamespaceConfig struct {
	Default         string `yaml:"default"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// CacheTTL returns the namespace snapshot TTL as a duration
func (c NamespaceConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifeMins == 0 {
		cfg.Database.ConnMaxLifeMins = 5
	}
	if cfg.Smartlead.BaseURL == "" {
		cfg.Smartlead.BaseURL = "https://server.smartlead.ai/api/v1"
	}
	if cfg.Smartlead.TimeoutSeconds == 0 {
		cfg.Smartlead.TimeoutSeconds = 30
	}
	if cfg.Smartlead.PageSize == 0 {
		cfg.Smartlead.PageSize = 100
	}
	if cfg.Instantly.BaseURL == "" {
		cfg.Instantly.BaseURL = "https://api.instantly.ai/api/v2"
	}
	if cfg.Instantly.TimeoutSeconds == 0 {
		cfg.Instantly.TimeoutSeconds = 30
	}
	if cfg.Instantly.PageSize == 0 {
		cfg.Instantly.PageSize = 100
	}
	if cfg.Sync.IntervalMinutes == 0 {
		cfg.Sync.IntervalMinutes = 30
	}
	if cfg.Sync.LookbackDays == 0 {
		cfg.Sync.LookbackDays = 7
	}
	if cfg.Redis.TTLMinutes == 0 {
		cfg.Redis.TTLMinutes = 120
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "sync-reports"
	}
	if cfg.Namespace.Default == "" {
		cfg.Namespace.Default = "default"
	}
	if cfg.Namespace.CacheTTLSeconds == 0 {
		cfg.Namespace.CacheTTLSeconds = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if apiKey := os.Getenv("SMARTLEAD_API_KEY"); apiKey != "" {
		cfg.Smartlead.APIKey = apiKey
	}
	if baseURL := os.Getenv("SMARTLEAD_BASE_URL"); baseURL != "" {
		cfg.Smartlead.BaseURL = baseURL
	}
	if apiKey := os.Getenv("INSTANTLY_API_KEY"); apiKey != "" {
		cfg.Instantly.APIKey = apiKey
	}
	if baseURL := os.Getenv("INSTANTLY_BASE_URL"); baseURL != "" {
		cfg.Instantly.BaseURL = baseURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if bucket := os.Getenv("ARCHIVE_S3_BUCKET"); bucket != "" {
		cfg.Archive.S3Bucket = bucket
		cfg.Archive.Enabled = true
	}
	if region := os.Getenv("ARCHIVE_S3_REGION"); region != "" {
		cfg.Archive.S3Region = region
	}

	return cfg, nil
}
