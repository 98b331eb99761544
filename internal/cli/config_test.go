package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("no path", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, &Config{}, cfg)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, ""))
		require.NoError(t, err)
		assert.Equal(t, &Config{}, cfg)
	})

	t.Run("all fields", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, "database: ./students.db\nlog_level: DEBUG\nmetrics_addr: 127.0.0.1:9464\n"))
		require.NoError(t, err)
		assert.Equal(t, &Config{
			Database:    "./students.db",
			LogLevel:    "DEBUG",
			MetricsAddr: "127.0.0.1:9464",
		}, cfg)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "databse: x.db\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "databse")
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "log_level: loud\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log_level")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseLevel("verbose")
	assert.Error(t, err)
}

// resolveDB runs "version" with args and returns the resolved database path.
func resolveDB(t *testing.T, args ...string) string {
	t.Helper()
	cmd, opts := newRootCommand()
	cmd.SetArgs(append(args, "version"))
	var out, errOut bytes.Buffer
	code := execute(context.Background(), cmd, opts, &out, &errOut)
	require.Equal(t, ExitSuccess, code, errOut.String())
	return opts.Database
}

func TestDatabasePrecedence(t *testing.T) {
	cfgPath := writeConfig(t, "database: from-file.db\n")

	t.Run("default", func(t *testing.T) {
		t.Setenv(EnvDatabase, "")
		t.Setenv(EnvConfig, "")
		assert.Equal(t, DefaultDatabase, resolveDB(t))
	})

	t.Run("config file", func(t *testing.T) {
		t.Setenv(EnvDatabase, "")
		t.Setenv(EnvConfig, "")
		assert.Equal(t, "from-file.db", resolveDB(t, "--config", cfgPath))
	})

	t.Run("config from env", func(t *testing.T) {
		t.Setenv(EnvDatabase, "")
		t.Setenv(EnvConfig, cfgPath)
		assert.Equal(t, "from-file.db", resolveDB(t))
	})

	t.Run("env beats file", func(t *testing.T) {
		t.Setenv(EnvDatabase, "from-env.db")
		t.Setenv(EnvConfig, cfgPath)
		assert.Equal(t, "from-env.db", resolveDB(t))
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv(EnvDatabase, "from-env.db")
		t.Setenv(EnvConfig, cfgPath)
		assert.Equal(t, "from-flag.db", resolveDB(t, "--db", "from-flag.db"))
	})
}

func TestInvalidConfigIsCommandError(t *testing.T) {
	t.Setenv(EnvDatabase, "")
	t.Setenv(EnvConfig, "")

	_, errOut, code := runCLI(t, "--config", writeConfig(t, "bogus: 1\n"), "version")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, "invalid configuration")
}

func TestNewLogger_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("record added", "id", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "record added")
	assert.Contains(t, buf.String(), "id=1")
	assert.NotContains(t, buf.String(), "\x1b[")
}
