package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds client configuration values.
type Config struct {
	APIBaseURL      string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	WSURL           string        `mapstructure:"ws_url" yaml:"ws_url"`
	CredentialsPath string        `mapstructure:"credentials_path" yaml:"credentials_path"`
	PageLimit       int           `mapstructure:"page_limit" yaml:"page_limit"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		APIBaseURL:      "http://localhost:8080/api",
		WSURL:           "ws://localhost:8080/ws",
		CredentialsPath: defaultCredentialsPath(),
		PageLimit:       50,
		HTTPTimeout:     30 * time.Second,
		LogLevel:        "info",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.WSURL != "" {
		c.WSURL = other.WSURL
	}
	if other.CredentialsPath != "" {
		c.CredentialsPath = other.CredentialsPath
	}
	if other.PageLimit != 0 {
		c.PageLimit = other.PageLimit
	}
	if other.HTTPTimeout != 0 {
		c.HTTPTimeout = other.HTTPTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chatsync.db"
	}
	return filepath.Join(home, ".chatsync", "credentials.db")
}
