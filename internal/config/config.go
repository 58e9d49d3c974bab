// Package config is the viper-backed configuration singleton. Values come
// from config.toml in the classdeck config directory, overridable with
// CLASSDECK_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// ConfigFileName is the config file under Dir().
const ConfigFileName = "config.toml"

var v *viper.Viper

// Dir returns the classdeck config directory, honoring CLASSDECK_HOME.
func Dir() (string, error) {
	if custom := os.Getenv("CLASSDECK_HOME"); custom != "" {
		return custom, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(base, "classdeck"), nil
}

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("toml")

	dir, err := Dir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
	}

	// Environment variables take precedence over the config file,
	// e.g. CLASSDECK_REMOTE_URL, CLASSDECK_DEBOUNCE.
	v.SetEnvPrefix("CLASSDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("remote.url", "ws://127.0.0.1:8787/sync")
	v.SetDefault("remote.token", "")
	v.SetDefault("debounce", "2s")
	v.SetDefault("cache.file", "cache.db")
	v.SetDefault("journal.enabled", true)
	v.SetDefault("log.file", "daemon.log")
	v.SetDefault("log.max-size-mb", 10)
	v.SetDefault("log.max-backups", 3)

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func active() *viper.Viper {
	if v == nil {
		// Commands call Initialize from the root command; tests may not.
		if err := Initialize(); err != nil {
			panic("config: " + err.Error())
		}
	}
	return v
}

// RemoteURL returns the sync server websocket URL.
func RemoteURL() string { return active().GetString("remote.url") }

// RemoteToken returns the shared sync token, "" when unset.
func RemoteToken() string { return active().GetString("remote.token") }

// Debounce returns the persistence quiet period.
func Debounce() time.Duration {
	d := active().GetDuration("debounce")
	if d <= 0 {
		return 2 * time.Second
	}
	return d
}

// CacheFile returns the SQLite cache filename under Dir().
func CacheFile() string { return active().GetString("cache.file") }

// JournalEnabled reports whether the sync journal is written.
func JournalEnabled() bool { return active().GetBool("journal.enabled") }

// LogFile returns the daemon log filename under Dir().
func LogFile() string { return active().GetString("log.file") }

// LogMaxSizeMB returns the log rotation size threshold.
func LogMaxSizeMB() int { return active().GetInt("log.max-size-mb") }

// LogMaxBackups returns the number of rotated logs kept.
func LogMaxBackups() int { return active().GetInt("log.max-backups") }

// fileConfig is the shape written by WriteDefault.
type fileConfig struct {
	Remote struct {
		URL   string `toml:"url"`
		Token string `toml:"token"`
	} `toml:"remote"`
	Debounce string `toml:"debounce"`
	Cache    struct {
		File string `toml:"file"`
	} `toml:"cache"`
	Journal struct {
		Enabled bool `toml:"enabled"`
	} `toml:"journal"`
}

// WriteDefault creates config.toml with default values. Refuses to
// overwrite an existing file.
func WriteDefault() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return path, fmt.Errorf("config file already exists: %s", path)
	}

	var cfg fileConfig
	cfg.Remote.URL = "ws://127.0.0.1:8787/sync"
	cfg.Debounce = "2s"
	cfg.Cache.File = "cache.db"
	cfg.Journal.Enabled = true

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
