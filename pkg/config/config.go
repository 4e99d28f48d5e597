// Package config loads omo settings from an optional YAML file and OMO_*
// environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	pkgdb "github.com/unowned-ai/omo/pkg/db"
)

const (
	// EnvPrefix is the prefix of environment overrides, e.g. OMO_DB_PATH.
	EnvPrefix = "OMO_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// Config is the complete application configuration.
type Config struct {
	DB  DBConfig  `koanf:"db"`
	Log LogConfig `koanf:"log"`
}

// DBConfig controls the SQLite connection.
type DBConfig struct {
	Path string `koanf:"path"` // empty means the per-OS default
	WAL  bool   `koanf:"wal"`
	Sync string `koanf:"sync"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DB: DBConfig{
			WAL:  false,
			Sync: "FULL",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load reads configPath (if it exists) and then applies OMO_* environment
// variables on top of the defaults.
//
// Environment variables map to keys by splitting on the first underscore
// after the prefix:
//
//	OMO_DB_PATH   -> db.path
//	OMO_LOG_LEVEL -> log.level
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envKey maps OMO_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile returns nil content without error when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Validate checks every field that has a closed set of values.
func (c *Config) Validate() error {
	if c.DB.Sync != "" && !pkgdb.ValidSyncMode(c.DB.Sync) {
		return fmt.Errorf("db.sync: invalid value %q (want OFF, NORMAL, FULL or EXTRA)", c.DB.Sync)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: invalid value %q (want json or console)", c.Log.Format)
	}
	return nil
}
