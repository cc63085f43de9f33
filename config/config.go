/*
Package config loads runtime settings for the server and the CLI.

SOURCES (later wins):
  1. Defaults in code (Default)
  2. TOML file (budget.toml, or the path in BUDGET_CONFIG); a missing
     file is fine
  3. .env file in the working directory, loaded into the environment;
     a missing file is fine
  4. Environment variables:

     BUDGET_PORT             server port
     BUDGET_DB_PATH          SQLite database path
     BUDGET_DB_DRIVER        sqlite3 (cgo) or sqlite (pure Go)
     BUDGET_LOCK_START_DATE  true/false
     BUDGET_CORS_ORIGINS     comma-separated origins
     LOG_LEVEL               logrus level name
     LOG_FORMAT              text or json

  Command-line flags in the binaries override all of the above.

EXAMPLE budget.toml:
  [server]
  port = 8080
  cors_origins = ["http://localhost:5173"]

  [database]
  path = "./data/budget.db"
  driver = "sqlite3"

  [log]
  level = "info"
  format = "json"

  [policy]
  lock_start_date = true
*/
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// DefaultPath is the config file read when BUDGET_CONFIG is unset.
const DefaultPath = "budget.toml"

// Config holds all budget engine settings.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Policy   Policy         `toml:"policy"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig selects the SQLite file and driver.
type DatabaseConfig struct {
	Path   string `toml:"path"`
	Driver string `toml:"driver"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Policy holds business policy switches.
type Policy struct {
	// LockStartDate freezes the registry start date once it is set or
	// once the user has records.
	LockStartDate bool `toml:"lock_start_date"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Path:   "./data/budget.db",
			Driver: "sqlite3",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Policy: Policy{
			LockStartDate: true,
		},
	}
}

// Load reads settings from every source. An empty path means
// BUDGET_CONFIG, then DefaultPath.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("BUDGET_CONFIG", DefaultPath)
	}
	if err := loadFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("reading .env: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error
	if cfg.Server.Port, err = envInt("BUDGET_PORT", cfg.Server.Port); err != nil {
		return err
	}
	if cfg.Policy.LockStartDate, err = envBool("BUDGET_LOCK_START_DATE", cfg.Policy.LockStartDate); err != nil {
		return err
	}
	cfg.Server.CORSOrigins = envList("BUDGET_CORS_ORIGINS", cfg.Server.CORSOrigins)
	cfg.Database.Path = getEnv("BUDGET_DB_PATH", cfg.Database.Path)
	cfg.Database.Driver = getEnv("BUDGET_DB_DRIVER", cfg.Database.Driver)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	return nil
}

// Validate checks values that cannot be fixed up silently.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	switch c.Database.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q (want sqlite3 or sqlite)", c.Database.Driver)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.Log.Format)
	}
	return nil
}

// NewLogger builds a logger writing to out with the configured level and format.
func (c Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// =============================================================================
// ENVIRONMENT HELPERS
// =============================================================================

// getEnv returns the variable's value or def when unset or empty.
func getEnv(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func envInt(key string, def int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envList(key string, def []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
