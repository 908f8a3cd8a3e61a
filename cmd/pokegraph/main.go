// Command pokegraph analyzes the Pokémon evolution graph stored in a SQLite
// data warehouse. It prints a console report, exports the graph payload, or
// serves it over HTTP with live refresh when the database changes.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/pokegraph/pkg/config"
	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/pipeline"
	"github.com/ritzau/pokegraph/pkg/source"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pokegraph",
		Short:         "Analyze the Pokémon evolution graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", config.DefaultFile, "Path to a TOML config file")
	flags.StringSlice("db", []string{source.DefaultDatabase}, "Candidate database files, first existing one is read")
	flags.Int("top", 10, "Number of triggers in the frequency table")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.Bool("log.json", false, "Write logs as JSON")

	root.AddCommand(newReportCmd(), newExportCmd(), newServeCmd())
	return root
}

// loadConfig resolves the configuration for cmd and configures logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFile(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logging.Configure(os.Stderr, logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt), cfg.Log.JSON)
	logging.Debug("configuration loaded", "db", cfg.DB, "top", cfg.Top)
	return cfg, nil
}

// refreshOnce runs a single refresh against the configured database.
func refreshOnce(ctx context.Context, cfg *config.Config) (*pipeline.Dataset, *source.SQLiteSource, error) {
	src := source.NewSQLiteSource(cfg.DB...)
	runner := pipeline.NewRunner(src, pipeline.Options{TopN: cfg.Top})

	ds, err := runner.Refresh(ctx, pipeline.RefreshOptions{Reason: "command line"})
	if err != nil {
		return nil, nil, err
	}
	return ds, src, nil
}
