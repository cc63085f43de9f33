package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/budget-engine/config"
	"github.com/warp/budget-engine/repair"
	"github.com/warp/budget-engine/store/sqlite"
	"github.com/warp/budget-engine/tracker"
)

// Output formats.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// app holds what every subcommand shares. The store is opened before the
// subcommand runs and closed after.
type app struct {
	configPath string
	dbPath     string
	driver     string
	output     string
	verbose    bool

	cfg     config.Config
	logger  *logrus.Logger
	store   *sqlite.Store
	tracker *tracker.Tracker
	engine  *repair.Engine
}

// newRootCommand creates the root CLI command with all subcommands registered.
func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "budgetctl",
		Short: "Maintenance tool for the daily budget database",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default budget.toml or $BUDGET_CONFIG)")
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path (overrides config)")
	flags.StringVar(&a.driver, "driver", "", "SQLite driver: sqlite3 or sqlite (overrides config)")
	flags.StringVarP(&a.output, "output", "o", outputText, "output format: text, json or yaml")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log every change")

	rootCmd.AddCommand(
		newDiagnoseCommand(a),
		newVerifyCommand(a),
		newRepairCommand(a),
		newGhostsCommand(a),
		newBackfillCommand(a),
		newPendingCommand(a),
	)

	return rootCmd
}

func (a *app) open(logOut io.Writer) error {
	switch a.output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", a.output)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.driver != "" {
		cfg.Database.Driver = a.driver
	}
	if a.verbose {
		cfg.Log.Level = "info"
	} else if cfg.Log.Level == "info" {
		cfg.Log.Level = "warning"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(logOut)

	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	store, err := sqlite.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.store = store
	a.tracker = tracker.New(store,
		tracker.WithLogger(a.logger),
		tracker.WithStartDateLock(cfg.Policy.LockStartDate),
	)
	a.engine = repair.New(store, repair.WithLogger(a.logger))
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// emit writes v as JSON or YAML, or calls text for the text format.
func (a *app) emit(out io.Writer, v any, text func(io.Writer) error) error {
	switch a.output {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text(out)
	}
}
