package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Environment variables and defaults.
const (
	EnvDatabase     = "ROSTER_DB"
	EnvConfig       = "ROSTER_CONFIG"
	DefaultDatabase = "roster.db"
)

// Config is the optional YAML config file.
//
//	database: ./students.db
//	log_level: debug
//	metrics_addr: 127.0.0.1:9464
type Config struct {
	Database    string `yaml:"database"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// LoadConfig reads a config file. Unknown keys are rejected.
// An empty path yields an empty Config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.LogLevel != "" {
		if _, err := parseLevel(cfg.LogLevel); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return cfg, nil
}

// resolve loads the config file and settles the database path and logger.
// Precedence: flag > environment > config file > default.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	configPath := o.ConfigPath
	if !cmd.Flags().Changed("config") {
		if env := os.Getenv(EnvConfig); env != "" {
			configPath = env
		}
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.Config = cfg
	o.ConfigPath = configPath

	if !cmd.Flags().Changed("db") {
		switch {
		case os.Getenv(EnvDatabase) != "":
			o.Database = os.Getenv(EnvDatabase)
		case cfg.Database != "":
			o.Database = cfg.Database
		default:
			o.Database = DefaultDatabase
		}
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		level, _ = parseLevel(cfg.LogLevel)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = newLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(o.Logger)

	o.Logger.Debug("configuration resolved", "db", o.Database, "config", configPath, "level", level)
	return nil
}

// parseLevel accepts debug, info, warn, and error, in any case.
func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: want debug, info, warn or error", s)
	}
	return level, nil
}
