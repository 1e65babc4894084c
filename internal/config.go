package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds application configuration
type Config struct {
	RedAPIKey  string
	OpsAPIKey  string
	CookieDir  string // where per-tracker session cookie files live
	ProxyURL   string
	UserAgent  string
	TimeoutSec int

	// Logging configuration
	LogLevel    string
	EnableDebug bool
	QuietMode   bool
	LogFile     string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		CookieDir:  filepath.Join(home, ".gazellekit"),
		UserAgent:  "gazellekit/1.0",
		TimeoutSec: 30,

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if key := os.Getenv("GZL_RED_API_KEY"); key != "" {
		c.RedAPIKey = key
	}

	if key := os.Getenv("GZL_OPS_API_KEY"); key != "" {
		c.OpsAPIKey = key
	}

	if dir := os.Getenv("GZL_COOKIE_DIR"); dir != "" {
		c.CookieDir = dir
	}

	if proxy := os.Getenv("GZL_PROXY"); proxy != "" {
		c.ProxyURL = proxy
	}

	if timeout := os.Getenv("GZL_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			c.TimeoutSec = t
		}
	}

	// Load logging configuration from environment
	if logLevel := os.Getenv("GZL_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if debug := os.Getenv("GZL_DEBUG"); debug != "" {
		c.EnableDebug = debug == "true" || debug == "1"
	}

	if quiet := os.Getenv("GZL_QUIET"); quiet != "" {
		c.QuietMode = quiet == "true" || quiet == "1"
	}

	if logFile := os.Getenv("GZL_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
}

// GetEnvWithDefault returns environment variable value or default
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ValidateConfig validates the configuration values
func (c *Config) ValidateConfig() error {
	if c.TimeoutSec < 1 {
		return fmt.Errorf("invalid timeout: %d (must be > 0)", c.TimeoutSec)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	if c.CookieDir == "" {
		return fmt.Errorf("cookie directory cannot be empty")
	}

	return nil
}
