package main

import (
	"github.com/spf13/cobra"

	"github.com/ritzau/pokegraph/pkg/output"
	"github.com/ritzau/pokegraph/pkg/pipeline"
	"github.com/ritzau/pokegraph/pkg/source"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print a summary of the evolution graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ds, src, err := refreshOnce(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			info := output.ReportInfo{Source: reportSource(ds, src), Skipped: ds.Skipped}
			output.PrintReport(cmd.OutOrStdout(), ds.Payload, info)
			return nil
		},
	}
}

// reportSource names where the reported data came from. A database that
// exists but could not be read still yields the built-in sample.
func reportSource(ds *pipeline.Dataset, src *source.SQLiteSource) string {
	if ds.Fallback {
		return "built-in sample"
	}
	if path, err := src.Path(); err == nil {
		return path
	}
	return "built-in sample"
}
