package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/teledash/internal/dashboard"
	"github.com/Dicklesworthstone/teledash/internal/server"
	"github.com/Dicklesworthstone/teledash/internal/svg"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		outDir  string
		refresh time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long: `Run the dashboard headless and serve it over HTTP: an auto-refreshing
page at /, per-region SVG charts under /charts/, readouts at /api/readouts
and range switching via POST /api/range.

With --out, every frame is also written to that directory as SVG files plus
readouts.json.

Examples:
  teledash serve
  teledash serve --listen 0.0.0.0:8899 --out /var/lib/teledash`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, outDir, refresh)
		},
	}
	cmd.Flags().String("listen", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&outDir, "out", "", "also write each frame into this directory")
	cmd.Flags().DurationVar(&refresh, "refresh", 5*time.Second, "page auto-refresh period")
	_ = a.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, outDir string, refresh time.Duration) error {
	cfg, log, cleanup, err := a.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := newStack(cfg, log)
	if err != nil {
		return err
	}

	var surface dashboard.Surface
	if outDir != "" {
		dir, err := svg.NewDirSurface(outDir, log)
		if err != nil {
			return err
		}
		surface = dir
	}
	runner := dashboard.NewRunner(st.ctl, surface, dashboard.RunnerOptions{
		PollInterval: cfg.PollInterval,
		Logger:       log,
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(runner, server.Options{Logger: log, Refresh: refresh})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return st.runSampler(ctx) })
	g.Go(func() error { return runner.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx, cfg.Listen) })
	log.Info("serving dashboard", "addr", cfg.Listen, "source", cfg.Source, "out", outDir)

	err = g.Wait()
	logStop(log, err)
	return err
}

func logStop(log *slog.Logger, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("dashboard stopped", "error", err)
		return
	}
	log.Info("dashboard stopped")
}
