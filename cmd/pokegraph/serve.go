package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/pokegraph/pkg/config"
	"github.com/ritzau/pokegraph/pkg/logging"
	"github.com/ritzau/pokegraph/pkg/pipeline"
	"github.com/ritzau/pokegraph/pkg/source"
	"github.com/ritzau/pokegraph/pkg/watcher"
	"github.com/ritzau/pokegraph/pkg/web"
)

func newServeCmd() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evolution graph over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, open)
		},
	}

	cmd.Flags().Int("port", 8080, "Port for the web server")
	cmd.Flags().Bool("watch", false, "Refresh when the database file changes")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet period before a change triggers a refresh")
	cmd.Flags().BoolVar(&open, "open", false, "Open the browser once the server is up")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, open bool) error {
	publisher := web.NewPublisher()
	defer publisher.Close()

	src := source.NewSQLiteSource(cfg.DB...)
	runner := pipeline.NewRunner(src, pipeline.Options{Publisher: publisher, TopN: cfg.Top})
	server := web.NewServer(runner, publisher)

	g, ctx := errgroup.WithContext(ctx)

	// Serve first so clients can subscribe to the loading status.
	g.Go(func() error {
		return server.Start(ctx, cfg.Port)
	})

	g.Go(func() error {
		_, err := runner.Refresh(ctx, pipeline.RefreshOptions{Reason: "startup"})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.Watch {
		fw, err := watcher.NewFileWatcher(src.Candidates())
		if err != nil {
			return err
		}
		if err := fw.Start(ctx); err != nil {
			return fmt.Errorf("watching database: %w", err)
		}
		defer fw.Stop()

		debouncer := watcher.NewDebouncer(fw.Events(), cfg.Debounce, 4*cfg.Debounce)
		debouncer.Start(ctx)

		g.Go(func() error {
			return watcher.Drive(ctx, debouncer.Output(), runner)
		})
	}

	if open {
		url := fmt.Sprintf("http://localhost:%d", cfg.Port)
		time.AfterFunc(500*time.Millisecond, func() {
			if ctx.Err() == nil {
				openBrowser(url)
			}
		})
	}

	return g.Wait()
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
