// Package config provides configuration loading and validation for the
// SpaniSami server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Defaults used when neither the config file, flags nor environment set a value.
const (
	DefaultBackendURL        = "http://127.0.0.1:5000"
	DefaultPort              = 8080
	DefaultStoreDriver       = "memory"
	DefaultSQLitePath        = "data/spanisami.db"
	DefaultPreferredLanguage = "en"
	DefaultVoiceMode         = "cv"
)

// Voice chat modes understood by the backend.
const (
	VoiceModeCV        = "cv"
	VoiceModeInterview = "interview"
)

// Config represents the server/CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or CLI flags.
type Config struct {
	// Backend
	BackendURL string `json:"backend_url,omitempty"` // Base URL of the profile/CV backend

	// Server
	Port int `json:"port,omitempty"`

	// Session storage
	StoreDriver string `json:"store_driver,omitempty"` // memory, sqlite or postgres
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string `json:"sqlite_path,omitempty"`

	// Behaviour
	PreferredLanguage string `json:"preferred_language,omitempty"`
	VoiceMode         string `json:"voice_mode,omitempty"`
	ChromePath        string `json:"chrome_path,omitempty"` // Chrome/Chromium binary for PDF export
	Verbose           bool   `json:"verbose,omitempty"`

	// CV archive (S3 or R2)
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config configures the optional CV PDF archive.
type S3Config struct {
	Bucket    string `json:"bucket,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"` // custom endpoint, e.g. Cloudflare R2
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Prefix    string `json:"prefix,omitempty"`
}

// Enabled reports whether an archive bucket is configured.
func (s S3Config) Enabled() bool {
	return s.Bucket != ""
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		BackendURL:        DefaultBackendURL,
		Port:              DefaultPort,
		StoreDriver:       DefaultStoreDriver,
		SQLitePath:        DefaultSQLitePath,
		PreferredLanguage: DefaultPreferredLanguage,
		VoiceMode:         DefaultVoiceMode,
	}
}

// FromEnv returns a Config populated from environment variables. Unset
// variables leave fields empty so the result can be merged over defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		BackendURL:  os.Getenv("BACKEND_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StoreDriver: os.Getenv("STORE_DRIVER"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),
		ChromePath:  os.Getenv("CHROME_PATH"),
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    os.Getenv("S3_REGION"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:    os.Getenv("S3_PREFIX"),
		},
	}
	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config error: 'backend_url' must be an absolute URL: %q", c.BackendURL)
		}
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}

	switch c.StoreDriver {
	case "", "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("config error: 'database_url' is required for the postgres store")
		}
	default:
		return fmt.Errorf("config error: unknown 'store_driver': %s", c.StoreDriver)
	}

	switch c.VoiceMode {
	case "", VoiceModeCV, VoiceModeInterview:
	default:
		return fmt.Errorf("config error: 'voice_mode' must be %q or %q", VoiceModeCV, VoiceModeInterview)
	}

	if c.ChromePath != "" {
		if _, err := os.Stat(c.ChromePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: chrome binary not found: %s", c.ChromePath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.BackendURL == "" {
		result.BackendURL = defaults.BackendURL
	}
	if result.StoreDriver == "" {
		result.StoreDriver = defaults.StoreDriver
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.PreferredLanguage == "" {
		result.PreferredLanguage = defaults.PreferredLanguage
	}
	if result.VoiceMode == "" {
		result.VoiceMode = defaults.VoiceMode
	}
	if result.ChromePath == "" {
		result.ChromePath = defaults.ChromePath
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	if result.S3.Bucket == "" {
		result.S3.Bucket = defaults.S3.Bucket
	}
	if result.S3.Region == "" {
		result.S3.Region = defaults.S3.Region
	}
	if result.S3.Endpoint == "" {
		result.S3.Endpoint = defaults.S3.Endpoint
	}
	if result.S3.AccessKey == "" {
		result.S3.AccessKey = defaults.S3.AccessKey
	}
	if result.S3.SecretKey == "" {
		result.S3.SecretKey = defaults.S3.SecretKey
	}
	if result.S3.Prefix == "" {
		result.S3.Prefix = defaults.S3.Prefix
	}

	// Bool fields: cannot distinguish unset from false, so flags always win.

	return result
}
