// Package config loads oafund settings from TOML, the environment and .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Environment variables that override secrets and paths in the file.
const (
	EnvJWTSecret    = "OAFUND_JWT_SECRET"
	EnvSMTPPassword = "OAFUND_SMTP_PASSWORD"
	EnvDB           = "OAFUND_DB"
)

// Config holds all oafund configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Auth       AuthConfig       `toml:"auth"`
	SMTP       SMTPConfig       `toml:"smtp"`
	Backup     BackupConfig     `toml:"backup"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	FundName     string `toml:"fund_name"`
	HistoryLimit int    `toml:"history_limit"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr         string  `toml:"addr"`
	UploadDir    string  `toml:"upload_dir,omitempty"`
	MaxUploadMB  int     `toml:"max_upload_mb"`
	RateLimit    float64 `toml:"rate_limit"`
	RateBurst    int     `toml:"rate_burst"`
	EventsBuffer int     `toml:"events_buffer"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `toml:"path,omitempty"`
}

// AuthConfig holds token settings. Prefer OAFUND_JWT_SECRET over a
// secret in the file.
type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret,omitempty"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

// SMTPConfig holds outgoing mail settings. An empty host disables mail.
type SMTPConfig struct {
	Host     string `toml:"host,omitempty"`
	Port     int    `toml:"port"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	From     string `toml:"from,omitempty"`
}

// BackupConfig holds snapshot settings. An empty schedule disables
// scheduled backups in serve.
type BackupConfig struct {
	Dir           string `toml:"dir,omitempty"`
	Schedule      string `toml:"schedule,omitempty"`
	RetentionDays int    `toml:"retention_days"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			FundName:     "Open Access Fund",
			HistoryLimit: 50,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			MaxUploadMB:  25,
			RateLimit:    5,
			RateBurst:    20,
			EventsBuffer: 200,
		},
		Auth: AuthConfig{
			TokenTTLHours: 12,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
		Backup: BackupConfig{
			RetentionDays: 30,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "oafund")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "oafund")
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory holding the database,
// uploads and backups.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "oafund")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "oafund")
}

// DBPath returns the configured database path or the default one.
func (c Config) DBPath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(DataDir(), "oafund.db")
}

// UploadDir returns the configured upload directory or the default one.
func (c Config) UploadDir() string {
	if c.Server.UploadDir != "" {
		return c.Server.UploadDir
	}
	return filepath.Join(DataDir(), "uploads")
}

// BackupDir returns the configured backup directory or the default one.
func (c Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(DataDir(), "backups")
}

// TokenTTL returns the staff token lifetime.
func (c Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTLHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// Retention returns how long backups are kept.
func (c Config) Retention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// LoadDotEnv loads a .env file from the working directory if present.
// Variables already set in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads the config file at path (the default path when empty),
// returning defaults if it doesn't exist. Environment overrides are
// applied last.
func Load(path string) (Config, error) {
	if path == "" {
		path = ConfigPath()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // config path is chosen by the local user
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvSMTPPassword); v != "" {
		cfg.SMTP.Password = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		cfg.Database.Path = v
	}
}

// Save writes the config to path (the default path when empty).
func Save(path string, cfg Config) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // config path is chosen by the local user
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists at path (the default path
// when empty).
func Exists(path string) bool {
	if path == "" {
		path = ConfigPath()
	}
	_, err := os.Stat(path)
	return err == nil
}
