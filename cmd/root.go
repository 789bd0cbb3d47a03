package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/config"
	"canopy/explorer/internal/db"
	"canopy/explorer/internal/errors"
	"canopy/explorer/internal/explorer"
	"canopy/explorer/internal/layout"
	"canopy/explorer/internal/logger"
)

var (
	cfgPath  string
	dbPath   string
	dataPath string
	logJSON  bool
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "canopy",
	Short:         "Explore a hierarchical graph by expanding, collapsing and touring it",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
}

func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", hint)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to canopy.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to a canopy SQLite database (selects the sqlite catalog)")
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "Path to a JSON or YAML dataset (selects the file catalog)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads configuration and applies flag overrides. Flags win
// over the file and the environment.
func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.Catalog.Source = config.SourceSQLite
		c.Catalog.DBPath = dbPath
	}
	if dataPath != "" {
		c.Catalog.Source = config.SourceFile
		c.Catalog.DataFile = dataPath
	}
	if cmd.Flags().Changed("log-json") {
		c.Log.JSON = logJSON
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := logger.Initialize(c.Log.JSON, c.Log.Level); err != nil {
		return errors.Wrap(err, "initializing logger")
	}
	cfg = c
	return nil
}

// DiscoverDB finds the database path using priority: flag > config > walk-up
func DiscoverDB() (string, error) {
	if cfg.Catalog.DBPath != "" {
		if _, err := os.Stat(cfg.Catalog.DBPath); err == nil {
			return cfg.Catalog.DBPath, nil
		}
		return "", errors.NewNotFoundError("database not found at %s", cfg.Catalog.DBPath)
	}
	if found := config.FindDatabase(); found != "" {
		return found, nil
	}
	return "", errors.WithHint(
		errors.NewNotFoundError("no %s found", config.DefaultDBFile),
		"use --db, set catalog.db_path, or run `canopy seed` to create one")
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// OpenCatalog builds the configured catalog behind a Guard. The returned
// database is non-nil only for the sqlite source and must be closed by the
// caller.
func OpenCatalog() (catalog.Catalog, *db.DB, error) {
	log := logger.Logger
	var inner catalog.Catalog
	var d *db.DB

	switch cfg.Catalog.Source {
	case config.SourceMemory:
		inner = catalog.NewMemory(catalog.Sample())
	case config.SourceFile:
		ds, err := catalog.LoadFile(cfg.Catalog.DataFile)
		if err != nil {
			return nil, nil, err
		}
		inner = catalog.NewMemory(ds)
	case config.SourceSQLite:
		var err error
		if d, err = OpenDatabase(); err != nil {
			return nil, nil, err
		}
		inner = catalog.NewSQLite(d)
	case config.SourceHTTP:
		inner = catalog.NewHTTP(cfg.Catalog.BaseURL, cfg.Catalog.RPS, nil, log)
	default:
		return nil, nil, errors.Newf("unknown catalog source %q", cfg.Catalog.Source)
	}

	log.Debugw("catalog opened", "source", cfg.Catalog.Source)
	return catalog.NewGuard(inner, cfg.Catalog.Timeout, log), d, nil
}

// newSession builds a session over cat with the configured layout and
// camera options, recording camera commands instead of moving a view.
func newSession(ctx context.Context, cat catalog.Catalog) (*explorer.Session, error) {
	adapter := layout.NewAdapter(layout.Sugiyama{}, cfg.Layout.Options, cfg.Layout.Timeout, logger.Logger)
	s := explorer.New(cat, adapter, nil, cfg.ExplorerOptions(), logger.Logger)
	if err := s.Init(ctx); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "loading skeleton")
	}
	return s, nil
}
