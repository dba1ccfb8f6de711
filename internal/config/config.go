// Package config loads the seatwatch configuration: the reusable core
// settings plus storage, provider, search, monitor, chat and metrics blocks.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/seatwatch/core/config"
	coredatabase "github.com/m3rciful/seatwatch/core/database"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// StorageConfig selects the subscription store backend.
type StorageConfig struct {
	Driver     string `yaml:"driver" envconfig:"STORAGE_DRIVER" validate:"oneof=postgres sqlite memory"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH" validate:"required_if=Driver sqlite"`
}

// ProviderConfig configures the RZD HTTP client.
type ProviderConfig struct {
	SuggestURL     string  `yaml:"suggest_url" envconfig:"RZD_SUGGEST_URL" validate:"required,url"`
	TrainsURL      string  `yaml:"trains_url" envconfig:"RZD_API_URL" validate:"required,url"`
	UserAgent      string  `yaml:"user_agent" envconfig:"USER_AGENT"`
	TimeoutSeconds int     `yaml:"timeout_seconds" envconfig:"RZD_TIMEOUT_SECONDS" validate:"gt=0"`
	RatePerSecond  float64 `yaml:"rate_per_second" envconfig:"RZD_RATE_PER_SECOND" validate:"gte=0"`
	Burst          int     `yaml:"burst" envconfig:"RZD_BURST" validate:"gte=0"`
}

// Timeout returns the per-request timeout.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// SearchConfig bounds the conversational search.
type SearchConfig struct {
	MinQueryLength int `yaml:"min_query_length" envconfig:"MIN_QUERY_LENGTH" validate:"gte=1"`
	MaxStations    int `yaml:"max_stations" envconfig:"MAX_STATIONS_PER_SEARCH" validate:"gte=1"`
	MaxTrains      int `yaml:"max_trains" envconfig:"MAX_TRAINS_PER_RESULT" validate:"gte=1"`
}

// MonitorConfig drives the background availability poller.
type MonitorConfig struct {
	IntervalSeconds     int `yaml:"interval_seconds" envconfig:"MONITORING_INTERVAL" validate:"gt=0"`
	ErrorBackoffSeconds int `yaml:"error_backoff_seconds" envconfig:"MONITORING_ERROR_BACKOFF" validate:"gt=0"`
	Concurrency         int `yaml:"concurrency" envconfig:"MONITORING_CONCURRENCY" validate:"gte=1"`
	MaxTrainsInNotice   int `yaml:"max_trains_in_notice" envconfig:"MONITORING_MAX_TRAINS_IN_NOTICE" validate:"gte=1"`
}

// Interval returns the sleep between cycles.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

// ErrorBackoff returns the sleep after a failed cycle.
func (m MonitorConfig) ErrorBackoff() time.Duration {
	return time.Duration(m.ErrorBackoffSeconds) * time.Second
}

// ChatConfig holds Telegram size ceilings.
type ChatConfig struct {
	MaxMessageLength int `yaml:"max_message_length" envconfig:"MAX_MESSAGE_LENGTH" validate:"gte=100,lte=4096"`
	MaxCallbackBytes int `yaml:"max_callback_bytes" envconfig:"MAX_CALLBACK_DATA_LENGTH" validate:"gte=16,lte=64"`
}

// MetricsConfig exposes Prometheus metrics; an empty Listen disables the server.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN" validate:"omitempty,hostname_port"`
}

// AppConfig is the full application configuration.
type AppConfig struct {
	coreconfig.Config `yaml:",inline"`

	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	Provider ProviderConfig      `yaml:"provider"`
	Search   SearchConfig        `yaml:"search"`
	Monitor  MonitorConfig       `yaml:"monitor"`
	Chat     ChatConfig          `yaml:"chat"`
	Metrics  MetricsConfig       `yaml:"metrics"`
}

// CoreConfig exposes the embedded core configuration.
func (c *AppConfig) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// DatabaseConfig returns the postgres settings, or nil when another driver is selected.
func (c *AppConfig) DatabaseConfig() *coredatabase.Config {
	if c.Storage.Driver != DriverPostgres {
		return nil
	}
	db := c.Database
	return &db
}

// Defaults returns a configuration with every optional value filled in.
func Defaults() AppConfig {
	return AppConfig{
		Storage: StorageConfig{Driver: DriverSQLite, SQLitePath: "data/seatwatch.db"},
		Database: coredatabase.Config{
			Host: "localhost", Port: "5432", MaxConnections: 10, MigrationsDir: "migrations",
		},
		Provider: ProviderConfig{
			SuggestURL:     "https://ticket.rzd.ru/api/v1/suggests",
			TrainsURL:      "https://ticket.rzd.ru/api/v1/railway-service/prices/train-pricing",
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			TimeoutSeconds: 30,
			RatePerSecond:  2,
			Burst:          2,
		},
		Search:  SearchConfig{MinQueryLength: 2, MaxStations: 10, MaxTrains: 10},
		Monitor: MonitorConfig{IntervalSeconds: 300, ErrorBackoffSeconds: 60, Concurrency: 4, MaxTrainsInNotice: 5},
		Chat:    ChatConfig{MaxMessageLength: 4000, MaxCallbackBytes: 64},
	}
}

// Load reads the YAML file at path over Defaults, applies environment
// overrides and validates the result.
func Load(path string) (*AppConfig, error) {
	cfg := Defaults()
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := coreconfig.Validate(&cfg); err != nil {
		return nil, err
	}
	if cfg.Storage.Driver == DriverPostgres && (cfg.Database.Name == "" || cfg.Database.User == "") {
		return nil, fmt.Errorf("database.name and database.user are required for the postgres driver")
	}
	return &cfg, nil
}
