// Package config loads the fusion-sync configuration file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
)

// ErrNoConfigFile is returned by FindConfigFile when no candidate exists.
var ErrNoConfigFile = errors.New("no config file found")

// DateLayout is the format of the created_from/created_to filters.
const DateLayout = "2006-01-02"

// Config is the top-level configuration
type Config struct {
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Sync        SyncConfig        `yaml:"sync"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SourceConfig holds the Fusion instance, credentials and resource paths
type SourceConfig struct {
	Credentials domain.Credentials    `yaml:",inline"`
	Endpoints   domain.EndpointConfig `yaml:",inline"`
	Timeout     time.Duration         `yaml:"timeout"`
}

// DestinationConfig holds the APEX endpoint
type DestinationConfig struct {
	API     domain.DestinationConfig `yaml:",inline"`
	Timeout time.Duration            `yaml:"timeout"`
}

// SyncConfig holds the default run options
type SyncConfig struct {
	PageSize    int           `yaml:"page_size"`
	Entities    []string      `yaml:"entities"`
	CreatedFrom string        `yaml:"created_from"`
	CreatedTo   string        `yaml:"created_to"`
	LedgerID    *int64        `yaml:"ledger_id"`
	Status      string        `yaml:"status"`
	LockTTL     time.Duration `yaml:"lock_ttl"`
	// Interval starts a run periodically while serving. Zero disables it.
	Interval time.Duration `yaml:"interval"`
}

// DatabaseConfig selects the run-history backend. URL wins over SQLitePath.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	SQLitePath      string        `yaml:"sqlite_path"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig enables the Redis run lock when URL is set
type RedisConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the operations API settings
type HTTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	APISecret string `yaml:"api_secret"`
}

// Addr returns host:port for the listener.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// LoggingConfig holds log level and format
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Credentials: domain.Credentials{AuthType: domain.AuthTypeBasic},
			Endpoints:   domain.DefaultEndpointConfig(),
			Timeout:     60 * time.Second,
		},
		Destination: DestinationConfig{
			Timeout: 60 * time.Second,
		},
		Sync: SyncConfig{
			PageSize: 25,
			LockTTL:  30 * time.Minute,
		},
		Database: DatabaseConfig{
			SQLitePath:      "fusion-sync.db",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a config file from the given path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{"fusion-sync.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "fusion-sync", "config.yaml"),
		)
	}
	searchPaths = append(searchPaths, "/etc/fusion-sync/config.yaml")

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfigFile, searchPaths)
}

// envOverrides maps environment variables to the fields they replace.
var envOverrides = []struct {
	name  string
	field func(c *Config) *string
}{
	{"FUSION_INSTANCE_URL", func(c *Config) *string { return &c.Source.Credentials.InstanceURL }},
	{"FUSION_AUTH_TYPE", func(c *Config) *string { return (*string)(&c.Source.Credentials.AuthType) }},
	{"FUSION_USERNAME", func(c *Config) *string { return &c.Source.Credentials.Username }},
	{"FUSION_PASSWORD", func(c *Config) *string { return &c.Source.Credentials.Password }},
	{"FUSION_CLIENT_ID", func(c *Config) *string { return &c.Source.Credentials.ClientID }},
	{"FUSION_CLIENT_SECRET", func(c *Config) *string { return &c.Source.Credentials.ClientSecret }},
	{"FUSION_ACCESS_TOKEN", func(c *Config) *string { return &c.Source.Credentials.AccessToken }},
	{"FUSION_JWT_SIGNING_KEY", func(c *Config) *string { return &c.Source.Credentials.JWT.SigningKey }},
	{"APEX_BASE_URL", func(c *Config) *string { return &c.Destination.API.BaseURL }},
	{"APEX_USERNAME", func(c *Config) *string { return &c.Destination.API.Username }},
	{"APEX_PASSWORD", func(c *Config) *string { return &c.Destination.API.Password }},
	{"APEX_TOKEN", func(c *Config) *string { return &c.Destination.API.Token }},
	{"DATABASE_URL", func(c *Config) *string { return &c.Database.URL }},
	{"SQLITE_PATH", func(c *Config) *string { return &c.Database.SQLitePath }},
	{"REDIS_URL", func(c *Config) *string { return &c.Redis.URL }},
	{"API_SECRET", func(c *Config) *string { return &c.HTTP.APISecret }},
	{"LOG_LEVEL", func(c *Config) *string { return &c.Logging.Level }},
}

// ApplyEnv overrides secrets and endpoints from the environment.
// Empty variables are ignored.
func (c *Config) ApplyEnv() error {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field(c) = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT %q is not a number", domain.ErrInvalidConfig, v)
		}
		c.HTTP.Port = port
	}
	return nil
}

// Validate normalises URLs and paths and checks required fields.
func (c *Config) Validate() error {
	c.Source.Credentials.Normalize()
	c.Source.Endpoints.Normalize()
	c.Destination.API.Normalize()

	if err := c.Source.Credentials.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Destination.API.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if c.Sync.PageSize < 0 || c.Sync.PageSize > 500 {
		return fmt.Errorf("%w: sync.page_size must be between 1 and 500", domain.ErrInvalidConfig)
	}
	if c.Sync.Interval < 0 {
		return fmt.Errorf("%w: sync.interval must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := c.Sync.RunOptions(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", domain.ErrInvalidConfig, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", domain.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// RunOptions converts the sync section into orchestrator run options.
func (s SyncConfig) RunOptions() (domain.RunOptions, error) {
	opts := domain.RunOptions{PageSize: s.PageSize}

	for _, name := range s.Entities {
		e, err := domain.ParseEntityType(strings.TrimSpace(name))
		if err != nil {
			return domain.RunOptions{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
		}
		opts.Entities = append(opts.Entities, e)
	}

	from, err := parseDate("created_from", s.CreatedFrom)
	if err != nil {
		return domain.RunOptions{}, err
	}
	to, err := parseDate("created_to", s.CreatedTo)
	if err != nil {
		return domain.RunOptions{}, err
	}
	if from != nil && to != nil && to.Before(*from) {
		return domain.RunOptions{}, fmt.Errorf("%w: created_to is before created_from", domain.ErrInvalidConfig)
	}

	opts.BatchFilters = domain.Filters{
		CreationDateFrom: from,
		CreationDateTo:   to,
		LedgerID:         s.LedgerID,
		Status:           s.Status,
	}
	return opts, nil
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD: %q", domain.ErrInvalidConfig, field, value)
	}
	return &t, nil
}
