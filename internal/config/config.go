// Package config loads process configuration from the environment and an
// optional config file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// ConfigFileEnv names an optional YAML/TOML/JSON file read before the
// environment. Environment variables always win.
const ConfigFileEnv = "FINTRACK_CONFIG"

var (
	validBackends = []string{"memory", "sqlite", "mongo"}
	validMirrors  = []string{"memory", "sheets"}
	validFormats  = []string{"text", "json"}
	validLevels   = []string{"debug", "info", "warn", "warning", "error"}
)

type Config struct {
	// HTTP Server
	Port               string        `mapstructure:"port"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`

	// Ledger
	Timezone         string        `mapstructure:"timezone"`
	CategoryCacheTTL time.Duration `mapstructure:"category_cache_ttl"`

	// Backend selection
	DataBackend string `mapstructure:"data_backend"`

	// SQLite
	SQLiteDBPath string `mapstructure:"sqlite_db_path"`

	// MongoDB
	MongoURI          string `mapstructure:"mongo_uri"`
	MongoDatabase     string `mapstructure:"mongo_database"`
	MongoTransactions bool   `mapstructure:"mongo_transactions"`

	// AMQP. An empty URL disables event publishing.
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
	AMQPQueue    string `mapstructure:"amqp_queue"`

	// Mirror worker
	MirrorBackend            string `mapstructure:"mirror_backend"`
	ResyncOnStart            bool   `mapstructure:"resync_on_start"`
	GoogleSpreadsheetID      string `mapstructure:"google_spreadsheet_id"`
	GoogleSheetName          string `mapstructure:"google_sheet_name"`
	GoogleServiceAccountJSON string `mapstructure:"google_service_account_json"`
	GoogleServiceAccountFile string `mapstructure:"google_service_account_file"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"port":                        "8081",
	"rate_limit_per_minute":       120,
	"shutdown_timeout":            "10s",
	"timezone":                    "UTC",
	"category_cache_ttl":          "5m",
	"data_backend":                "memory",
	"sqlite_db_path":              "./data/fintrack.db",
	"mongo_uri":                   "mongodb://localhost:27017",
	"mongo_database":              "fintrack",
	"mongo_transactions":          false,
	"amqp_url":                    "",
	"amqp_exchange":               "fintrack",
	"amqp_queue":                  "ledger_events",
	"mirror_backend":              "memory",
	"resync_on_start":             true,
	"google_spreadsheet_id":       "",
	"google_sheet_name":           "Transactions",
	"google_service_account_json": "",
	"google_service_account_file": "",
	"log_level":                   "info",
	"log_format":                  "text",
}

// Load reads defaults, then the optional config file, then the environment.
// Keys map to upper-case variables: data_backend is DATA_BACKEND.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.DataBackend = strings.ToLower(strings.TrimSpace(c.DataBackend))
	c.MirrorBackend = strings.ToLower(strings.TrimSpace(c.MirrorBackend))
	return &c, nil
}

// Location resolves Timezone. Validate has already rejected unknown zones.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventsEnabled reports whether ledger events are published to AMQP.
func (c *Config) EventsEnabled() bool {
	return strings.TrimSpace(c.AMQPURL) != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}
	if c.ShutdownTimeout < time.Second || c.ShutdownTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be between 1s and 5m", c.ShutdownTimeout))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}
	if c.CategoryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid category cache ttl %v: must not be negative", c.CategoryCacheTTL))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case "mongo":
		if u, err := url.Parse(c.MongoURI); err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			errors = append(errors, fmt.Sprintf("invalid MongoDB URI '%s': scheme must be 'mongodb' or 'mongodb+srv'", c.MongoURI))
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker adds the checks only the mirror worker needs.
func (c *Config) ValidateWorker() error {
	var errors []string
	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}

	if !c.EventsEnabled() {
		errors = append(errors, "AMQP URL is required by the worker")
	}
	if !slices.Contains(validMirrors, c.MirrorBackend) {
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validMirrors))
	}
	if c.MirrorBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets mirror")
		}
		hasJSON := c.GoogleServiceAccountJSON != ""
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasJSON && !hasFile {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets mirror")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
