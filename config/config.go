// Package config loads console settings from MERGEALERT_* environment
// variables and an optional config.yaml using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	EnvPrefix        = "MERGEALERT"
	DefaultBaseURL   = "http://localhost:1688/api/v1"
	DefaultTimeout   = 10 * time.Second
	DefaultIdle      = 30 * time.Minute
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
	appDirName       = "mergealert"
	configFileName   = "config"
	sessionFileName  = "session.json"
	sessionDBName    = "session.db"
	faviconFileName  = "favicon.png"
	logFileMaxSizeMB = 10
)

// Config holds console settings.
type Config struct {
	// Dir is where config.yaml, the session store and the icon live.
	Dir string `mapstructure:"dir"`
	// BaseURL is the REST API root, e.g. http://localhost:1688/api/v1.
	BaseURL string        `mapstructure:"api_base_url"`
	Timeout time.Duration `mapstructure:"api_timeout"`
	// RateLimit caps requests per second; 0 disables limiting.
	RateLimit float64 `mapstructure:"api_rate_limit"`
	RateBurst int     `mapstructure:"api_rate_burst"`
	// InactivityWindow is how long a session may sit idle before it is discarded.
	InactivityWindow time.Duration `mapstructure:"inactivity_window"`

	// StorageBackend is one of file, sqlite, redis or memory.
	StorageBackend string `mapstructure:"storage_backend"`
	StoragePath    string `mapstructure:"storage_path"`
	RedisURL       string `mapstructure:"redis_url"`
	RedisProfile   string `mapstructure:"redis_profile"`
	// SealKey is a hex-encoded 32-byte key; when set, stored tokens are encrypted.
	SealKey string `mapstructure:"seal_key"`

	LogLevel        string `mapstructure:"log_level"`
	LogFile         string `mapstructure:"log_file"`
	LogFileMaxSize  int    `mapstructure:"log_file_max_size_mb"`
	MetricsTextfile string `mapstructure:"metrics_textfile"`
	IconPath        string `mapstructure:"icon_path"`
	Output          string `mapstructure:"output"`
}

// DefaultDir returns ~/.config/mergealert or the platform equivalent.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return appDirName
	}
	return filepath.Join(base, appDirName)
}

// Load builds and validates Config. dir overrides the config directory; when
// empty MERGEALERT_DIR or DefaultDir is used. A missing config.yaml is ignored.
// Environment variables override the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("dir", DefaultDir())
	if dir != "" {
		v.Set("dir", dir)
	}
	dir = v.GetString("dir")

	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", filepath.Join(dir, configFileName+".yaml"), err)
		}
	}

	v.SetDefault("api_base_url", DefaultBaseURL)
	v.SetDefault("api_timeout", DefaultTimeout)
	v.SetDefault("api_rate_limit", 0)
	v.SetDefault("api_rate_burst", 1)
	v.SetDefault("inactivity_window", DefaultIdle)
	v.SetDefault("storage_backend", BackendFile)
	v.SetDefault("storage_path", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_profile", "default")
	v.SetDefault("seal_key", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")
	v.SetDefault("log_file_max_size_mb", logFileMaxSizeMB)
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("icon_path", filepath.Join(dir, faviconFileName))
	v.SetDefault("output", "table")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return errors.New("config: api_base_url must be set")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("config: api_base_url %q must start with http:// or https://", c.BaseURL)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.InactivityWindow <= 0 {
		return errors.New("config: inactivity_window must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("config: api_rate_limit must not be negative")
	}

	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	switch c.StorageBackend {
	case BackendFile:
		if c.StoragePath == "" {
			c.StoragePath = filepath.Join(c.Dir, sessionFileName)
		}
	case BackendSQLite:
		if c.StoragePath == "" {
			c.StoragePath = filepath.Join(c.Dir, sessionDBName)
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("config: redis_url must be set when storage_backend=redis")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown storage_backend %q", c.StorageBackend)
	}

	switch c.Output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("config: output must be table, json or yaml, got %q", c.Output)
	}
	return nil
}
