package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ritzau/pokegraph/pkg/output"
	"github.com/ritzau/pokegraph/pkg/payload"
)

func newExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graph payload as JSON, YAML or Graphviz DOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := output.ParseFormat(format)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ds, _, err := refreshOnce(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				return export(cmd.OutOrStdout(), ds.Payload, f)
			}

			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := export(file, ds.Payload, f); err != nil {
				file.Close()
				return err
			}
			return file.Close()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(output.FormatJSON), fmt.Sprintf("Output format %v", output.Formats))
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func export(w io.Writer, p *payload.Payload, f output.Format) error {
	if err := output.Export(w, p, f); err != nil {
		return fmt.Errorf("exporting %s: %w", f, err)
	}
	return nil
}
