// Package config loads barakah configuration from file, environment, and
// flags, and builds the application loggers.
//
// Configuration is resolved by viper: defaults first, then an optional
// barakah.yaml in the config directory, then BARAKAH_* environment
// variables. The daemon can watch the file and react to edits without a
// restart.
package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the resolved application configuration.
type Config struct {
	// OwnerID identifies whose records this device holds.
	OwnerID string `mapstructure:"owner_id"`

	// DBPath is the local SQLite database location.
	DBPath string `mapstructure:"db_path"`

	Backend   Backend   `mapstructure:"backend"`
	Sync      Sync      `mapstructure:"sync"`
	Dashboard Dashboard `mapstructure:"dashboard"`
	Advisor   Advisor   `mapstructure:"advisor"`
	Log       Log       `mapstructure:"log"`
}

// Backend configures the remote adapter.
type Backend struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Sync configures the connectivity monitor and sync engine.
type Sync struct {
	ProbeURL      string        `mapstructure:"probe_url"`
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
	DrainInterval time.Duration `mapstructure:"drain_interval"`
	PullInterval  time.Duration `mapstructure:"pull_interval"`
	RetryCeiling  int           `mapstructure:"retry_ceiling"`
	BackoffBase   time.Duration `mapstructure:"backoff_base"`
}

// Dashboard configures the WebSocket dashboard server.
type Dashboard struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Advisor configures the AI advisor.
type Advisor struct {
	APIKey        string  `mapstructure:"api_key"`
	Model         string  `mapstructure:"model"`
	MonthlyIncome float64 `mapstructure:"monthly_income"`
}

// Log configures file logging for the daemon.
type Log struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Dir returns the barakah config directory, honoring BARAKAH_HOME.
func Dir() string {
	if dir := os.Getenv("BARAKAH_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".barakah"
	}
	return filepath.Join(home, ".barakah")
}

// envReplacer maps nested keys to environment names, so sync.probe_url
// resolves from BARAKAH_SYNC_PROBE_URL.
var envReplacer = strings.NewReplacer(".", "_")

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("owner_id", "local")
	v.SetDefault("db_path", filepath.Join(dir, "barakah.db"))

	v.SetDefault("backend.url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout", 15*time.Second)

	v.SetDefault("sync.probe_url", "https://www.gstatic.com/generate_204")
	v.SetDefault("sync.probe_interval", 10*time.Second)
	v.SetDefault("sync.drain_interval", 30*time.Second)
	v.SetDefault("sync.pull_interval", 5*time.Minute)
	v.SetDefault("sync.retry_ceiling", 5)
	v.SetDefault("sync.backoff_base", time.Second)

	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 8471)

	v.SetDefault("advisor.api_key", "")
	v.SetDefault("advisor.model", "")
	v.SetDefault("advisor.monthly_income", 0)

	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 30)
}

// newViper builds a viper instance bound to the config directory and the
// BARAKAH_* environment.
func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("barakah")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.SetEnvPrefix("BARAKAH")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	setDefaults(v, dir)
	return v
}

// Load resolves configuration from defaults, the config file, and the
// environment. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadDir(Dir())
}

// LoadDir is Load with an explicit config directory, used by tests.
func LoadDir(dir string) (*Config, error) {
	v := newViper(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Watch reloads the config whenever the file changes and invokes onChange
// with the fresh copy. Returns the initial config.
func Watch(dir string, onChange func(*Config)) (*Config, error) {
	v := newViper(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	v.OnConfigChange(func(ev fsnotify.Event) {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
			return
		}
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			log.Printf("[config] Ignoring invalid config change: %v", err)
			return
		}
		onChange(&next)
	})
	v.WatchConfig()

	return &cfg, nil
}

// Writer returns the daemon log destination. With no file configured it
// logs to stderr; otherwise a size-capped rotating file.
func (l Log) Writer() io.Writer {
	if l.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   l.File,
		MaxSize:    l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAgeDays,
		Compress:   true,
	}
}

// NewLogger builds a prefixed logger writing to w.
func NewLogger(w io.Writer, prefix string) *log.Logger {
	return log.New(w, "["+prefix+"] ", log.LstdFlags|log.Lmsgprefix)
}
