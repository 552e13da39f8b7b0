// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath     = "config.toml"
	DefaultDatabasePath   = "depotbot.db"
	DefaultPollTimeout    = 30
	DefaultStoreTimeout   = "5s"
	DefaultMaxFileSizeMB  = 50
	DefaultSendRatePerSec = 25
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Telegram TelegramConfig `toml:"telegram"`
	Database DatabaseConfig `toml:"database"`
	Bot      BotConfig      `toml:"bot"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TelegramConfig holds the bot token and long-poll timeout in seconds.
// The token can also come from the TELEGRAM_BOT_TOKEN environment
// variable, which takes precedence over the file.
type TelegramConfig struct {
	Token              string `toml:"token"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds"`
	SendRatePerSecond  int    `toml:"send_rate_per_second"`
}

// DatabaseConfig holds the SQLite file path and per-operation timeout.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	StoreTimeout string `toml:"store_timeout"`
}

// BotConfig holds bot behavior settings: the admin allow-list and the
// upload size cap.
type BotConfig struct {
	AdminIDs      []int64 `toml:"admin_ids"`
	MaxFileSizeMB int     `toml:"max_file_size_mb"`
}

// OperationTimeout returns the parsed per-operation store timeout,
// falling back to the default when unset or invalid.
func (c DatabaseConfig) OperationTimeout() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultStoreTimeout)
	}
	return d
}

// IsAdmin reports whether id is in the configured admin allow-list.
func (c BotConfig) IsAdmin(id int64) bool {
	for _, admin := range c.AdminIDs {
		if admin == id {
			return true
		}
	}
	return false
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telegram: TelegramConfig{
			PollTimeoutSeconds: DefaultPollTimeout,
			SendRatePerSecond:  DefaultSendRatePerSec,
		},
		Database: DatabaseConfig{
			Path:         DefaultDatabasePath,
			StoreTimeout: DefaultStoreTimeout,
		},
		Bot: BotConfig{
			MaxFileSizeMB: DefaultMaxFileSizeMB,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		cfg.Database.Path = path
	}
}
