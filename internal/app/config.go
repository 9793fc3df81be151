package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/rosterhq/roster/internal/database"
)

// Config represents the runtime configuration for the Roster backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Identity    IdentityConfig    `mapstructure:"identity"`
	Join        JoinConfig        `mapstructure:"join"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	LogLevel      string `mapstructure:"log_level"`
	JoinRateLimit int    `mapstructure:"join_rate_limit"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver"`
	Path     string            `mapstructure:"path"`
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Name     string            `mapstructure:"name"`
	Options  map[string]string `mapstructure:"options"`
}

// IdentityConfig selects and configures the identity provider backend.
type IdentityConfig struct {
	// Backend is either "directory" (accounts held in a local database)
	// or "http" (accounts held by a remote identity service).
	Backend   string             `mapstructure:"backend"`
	Directory DatabaseConfig     `mapstructure:"directory"`
	HTTP      IdentityHTTPConfig `mapstructure:"http"`
}

// IdentityHTTPConfig holds connection options for a remote identity service.
type IdentityHTTPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// JoinConfig tunes the redemption flow.
type JoinConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	TokenLength int           `mapstructure:"token_length"`
}

// AuthConfig captures authentication-related settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures the sign-in tokens minted after redemption.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"sign_in_token_ttl"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// MaintenanceConfig controls background sweep jobs.
type MaintenanceConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	TokenSweepSchedule string `mapstructure:"token_sweep_schedule"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
	AuditSweepSchedule string `mapstructure:"audit_sweep_schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ROSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate checks that required settings are present before the server starts.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	c.Auth.JWT.Secret = strings.TrimSpace(c.Auth.JWT.Secret)
	if c.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	switch strings.ToLower(strings.TrimSpace(c.Identity.Backend)) {
	case "", "directory":
	case "http":
		if strings.TrimSpace(c.Identity.HTTP.BaseURL) == "" {
			return errors.New("identity.http.base_url must be configured when identity.backend is http")
		}
	default:
		return fmt.Errorf("unsupported identity backend %q", c.Identity.Backend)
	}

	return nil
}

// StoreDatabaseConfig converts the record-store section into a database.Config.
func (c *Config) StoreDatabaseConfig() database.Config {
	return convertDatabaseConfig(c.Database)
}

// DirectoryDatabaseConfig converts the directory identity section into a
// database.Config, falling back to a sibling sqlite file next to the store.
func (c *Config) DirectoryDatabaseConfig() database.Config {
	cfg := c.Identity.Directory
	if strings.TrimSpace(cfg.Driver) == "" && strings.TrimSpace(cfg.DSN) == "" && strings.TrimSpace(cfg.Path) == "" {
		cfg = DatabaseConfig{Driver: "sqlite", Path: "./data/roster-directory.sqlite"}
	}
	return convertDatabaseConfig(cfg)
}

func convertDatabaseConfig(cfg DatabaseConfig) database.Config {
	return database.Config{
		Driver:   strings.ToLower(strings.TrimSpace(cfg.Driver)),
		Path:     strings.TrimSpace(cfg.Path),
		DSN:      strings.TrimSpace(cfg.DSN),
		Host:     strings.TrimSpace(cfg.Host),
		Port:     cfg.Port,
		User:     strings.TrimSpace(cfg.User),
		Password: cfg.Password,
		Name:     strings.TrimSpace(cfg.Name),
		Options:  cfg.Options,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.join_rate_limit", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/roster.sqlite")

	v.SetDefault("identity.backend", "directory")
	v.SetDefault("identity.http.timeout", "10s")

	v.SetDefault("join.timeout", "5s")
	v.SetDefault("join.token_length", 24)

	v.SetDefault("auth.jwt.issuer", "roster")
	v.SetDefault("auth.jwt.sign_in_token_ttl", "1h")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.token_sweep_schedule", "@hourly")
	v.SetDefault("maintenance.audit_retention_days", 90)
	v.SetDefault("maintenance.audit_sweep_schedule", "@daily")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
