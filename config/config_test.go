package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/config"
)

// isolate clears every variable Load reads so the host environment
// cannot leak into a test.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BUDGET_CONFIG", "BUDGET_PORT", "BUDGET_DB_PATH", "BUDGET_DB_DRIVER",
		"BUDGET_LOCK_START_DATE", "BUDGET_CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "budget.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	isolate(t)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))

	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.True(t, cfg.Policy.LockStartDate)
}

func TestLoad_ReadsTOML(t *testing.T) {
	isolate(t)
	path := writeFile(t, `
[server]
port = 9090
cors_origins = ["http://localhost:5173"]

[database]
path = "/var/lib/budget/budget.db"
driver = "sqlite"

[log]
level = "debug"
format = "json"

[policy]
lock_start_date = false
`)

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/var/lib/budget/budget.db", cfg.Database.Path)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Policy.LockStartDate)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	// GIVEN: A file and environment variables that disagree
	isolate(t)
	path := writeFile(t, "[server]\nport = 9090\n")
	t.Setenv("BUDGET_PORT", "7000")
	t.Setenv("BUDGET_DB_DRIVER", "sqlite")
	t.Setenv("BUDGET_LOCK_START_DATE", "false")
	t.Setenv("BUDGET_CORS_ORIGINS", "https://a.example, https://b.example,")

	// WHEN: Loading
	cfg, err := config.Load(path)

	// THEN: The environment wins
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Policy.LockStartDate)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("BUDGET_CONFIG", writeFile(t, "[log]\nformat = \"json\"\n"))

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		file string
		env  map[string]string
	}{
		{name: "bad toml", file: "[server\nport = 1"},
		{name: "bad port env", env: map[string]string{"BUDGET_PORT": "eighty"}},
		{name: "bad bool env", env: map[string]string{"BUDGET_LOCK_START_DATE": "maybe"}},
		{name: "unknown driver", env: map[string]string{"BUDGET_DB_DRIVER": "postgres"}},
		{name: "bad level", env: map[string]string{"LOG_LEVEL": "loud"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "missing.toml")
			if tc.file != "" {
				path = writeFile(t, tc.file)
			}

			_, err := config.Load(path)

			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Server.Port = 70000
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Database.Path = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Log.Format = "xml"
	assert.Error(t, bad.Validate())
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"
	var buf bytes.Buffer

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.WithField("user", "u1").Warn("shown")

	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"user":"u1"`)
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
