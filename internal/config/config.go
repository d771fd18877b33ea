// Package config defines resortd's configuration file, its defaults and the
// viper/env wiring used by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to environment overrides, e.g. RESORT_DATABASE_DSN.
const EnvPrefix = "RESORT"

// Config is the top-level resortd configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Fallback FallbackConfig `yaml:"fallback" mapstructure:"fallback"`
	Janitor  JanitorConfig  `yaml:"janitor" mapstructure:"janitor"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host" mapstructure:"host"`
	Port            int        `yaml:"port" mapstructure:"port"`
	ShutdownTimeout string     `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodySize     int64      `yaml:"max_body_size" mapstructure:"max_body_size"`
	CORS            CORSConfig `yaml:"cors" mapstructure:"cors"`
	// RequestsPerMinute limits auth endpoint calls per client IP.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins" mapstructure:"origins"`
}

// DatabaseConfig selects and tunes the primary database.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	DSN             string `yaml:"dsn" mapstructure:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool   `yaml:"auto_migrate" mapstructure:"auto_migrate"`
}

// SessionConfig controls browser sessions.
type SessionConfig struct {
	Store       string `yaml:"store" mapstructure:"store"`
	RedisURL    string `yaml:"redis_url" mapstructure:"redis_url"`
	CookieName  string `yaml:"cookie_name" mapstructure:"cookie_name"`
	Secret      string `yaml:"secret" mapstructure:"secret"`
	IdleTimeout string `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxLifetime string `yaml:"max_lifetime" mapstructure:"max_lifetime"`
	Secure      bool   `yaml:"secure" mapstructure:"secure"`
}

// AuthConfig controls login throttling, passwords and API tokens.
type AuthConfig struct {
	JWTSecret         string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTL          string `yaml:"token_ttl" mapstructure:"token_ttl"`
	MaxLoginAttempts  int    `yaml:"max_login_attempts" mapstructure:"max_login_attempts"`
	LockoutDuration   string `yaml:"lockout_duration" mapstructure:"lockout_duration"`
	MinPasswordLength int    `yaml:"min_password_length" mapstructure:"min_password_length"`
}

// FallbackConfig controls the demo catalog served when the database is down.
type FallbackConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// JanitorConfig controls background cleanup.
type JanitorConfig struct {
	Interval          string `yaml:"interval" mapstructure:"interval"`
	ActivityRetention string `yaml:"activity_retention" mapstructure:"activity_retention"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Default returns a Config pre-filled with sensible defaults. Secrets are
// left empty.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ShutdownTimeout:   "30s",
			MaxBodySize:       1 << 20,
			CORS:              CORSConfig{Origins: []string{"*"}},
			RequestsPerMinute: 30,
		},
		Database: DatabaseConfig{
			Driver:          "mysql",
			DSN:             "resort:resort@tcp(127.0.0.1:3306)/resort",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "5m",
			AutoMigrate:     true,
		},
		Session: SessionConfig{
			Store:       "memory",
			CookieName:  "resortd_session",
			IdleTimeout: "30m",
			MaxLifetime: "12h",
		},
		Auth: AuthConfig{
			TokenTTL:          "1h",
			MaxLoginAttempts:  5,
			LockoutDuration:   "15m",
			MinPasswordLength: 8,
		},
		Fallback: FallbackConfig{Enabled: true},
		Janitor: JanitorConfig{
			Interval:          "10m",
			ActivityRetention: "2160h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with v so that environment overrides
// work for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	defaults := map[string]interface{}{
		"server.host":                d.Server.Host,
		"server.port":                d.Server.Port,
		"server.shutdown_timeout":    d.Server.ShutdownTimeout,
		"server.max_body_size":       d.Server.MaxBodySize,
		"server.cors.origins":        d.Server.CORS.Origins,
		"server.requests_per_minute": d.Server.RequestsPerMinute,
		"database.driver":            d.Database.Driver,
		"database.dsn":               d.Database.DSN,
		"database.max_open_conns":    d.Database.MaxOpenConns,
		"database.max_idle_conns":    d.Database.MaxIdleConns,
		"database.conn_max_lifetime": d.Database.ConnMaxLifetime,
		"database.auto_migrate":      d.Database.AutoMigrate,
		"session.store":              d.Session.Store,
		"session.redis_url":          d.Session.RedisURL,
		"session.cookie_name":        d.Session.CookieName,
		"session.secret":             d.Session.Secret,
		"session.idle_timeout":       d.Session.IdleTimeout,
		"session.max_lifetime":       d.Session.MaxLifetime,
		"session.secure":             d.Session.Secure,
		"auth.jwt_secret":            d.Auth.JWTSecret,
		"auth.token_ttl":             d.Auth.TokenTTL,
		"auth.max_login_attempts":    d.Auth.MaxLoginAttempts,
		"auth.lockout_duration":      d.Auth.LockoutDuration,
		"auth.min_password_length":   d.Auth.MinPasswordLength,
		"fallback.enabled":           d.Fallback.Enabled,
		"janitor.interval":           d.Janitor.Interval,
		"janitor.activity_retention": d.Janitor.ActivityRetention,
		"logging.level":              d.Logging.Level,
		"logging.format":             d.Logging.Format,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// ConfigureViper points v at the config file (or the default search path)
// and enables RESORT_* environment overrides.
func ConfigureViper(v *viper.Viper, file string) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("resortd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.resortd")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// Load reads the config file known to v (a missing file is not an error),
// applies environment overrides and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML configuration file. Environment variables
// referenced as ${VAR_NAME} in the file are expanded before parsing.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteDefault writes the default configuration to a YAML file. An existing
// file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders cfg as YAML with secrets masked.
func Marshal(cfg *Config) ([]byte, error) {
	cp := *cfg
	cp.Session.Secret = mask(cp.Session.Secret)
	cp.Auth.JWTSecret = mask(cp.Auth.JWTSecret)
	cp.Database.DSN = maskDSN(cp.Database.DSN)
	return yaml.Marshal(&cp)
}

// LoadEnvFiles loads .env.local then .env from the working directory.
// Variables already set in the environment win; missing files are skipped.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// maskDSN hides the password part of user:pass@host style DSNs.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	userinfo := dsn[:at]
	scheme := ""
	if i := strings.Index(userinfo, "://"); i >= 0 {
		scheme, userinfo = userinfo[:i+3], userinfo[i+3:]
	}
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return dsn
	}
	return scheme + userinfo[:colon] + ":********" + dsn[at:]
}

// ---------------------------------------------------------------------------
// Validation and typed accessors
// ---------------------------------------------------------------------------

// Validate checks enumerations and that every duration parses.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be mysql, postgres or sqlite, got %q", c.Database.Driver)
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url is required when session.store is redis")
		}
	default:
		return fmt.Errorf("session.store must be memory or redis, got %q", c.Session.Store)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Auth.MaxLoginAttempts < 1 {
		return errors.New("auth.max_login_attempts must be at least 1")
	}
	for _, s := range []string{c.Session.Secret, c.Auth.JWTSecret} {
		if s != "" && len(s) < 16 {
			return errors.New("secrets must be at least 16 characters")
		}
	}
	durations := map[string]string{
		"server.shutdown_timeout":    c.Server.ShutdownTimeout,
		"database.conn_max_lifetime": c.Database.ConnMaxLifetime,
		"session.idle_timeout":       c.Session.IdleTimeout,
		"session.max_lifetime":       c.Session.MaxLifetime,
		"auth.token_ttl":             c.Auth.TokenTTL,
		"auth.lockout_duration":      c.Auth.LockoutDuration,
		"janitor.interval":           c.Janitor.Interval,
		"janitor.activity_retention": c.Janitor.ActivityRetention,
	}
	for key, val := range durations {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// Duration parses s, returning def for empty or invalid values.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
