package cli

import (
	"context"
	"log/slog"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/config"
	"github.com/Dicklesworthstone/teledash/internal/dashboard"
	"github.com/Dicklesworthstone/teledash/internal/metrics"
	"github.com/Dicklesworthstone/teledash/internal/reconcile"
	"github.com/Dicklesworthstone/teledash/internal/sampler"
)

// stack is everything a surface needs: the controller and, for the local
// source, the sampler whose loop the caller must run.
type stack struct {
	ctl   *dashboard.Controller
	local *sampler.Local
}

// runSampler runs the local sampling loop when there is one.
func (s stack) runSampler(ctx context.Context) error {
	if s.local == nil {
		return nil
	}
	return s.local.Run(ctx)
}

func newSource(cfg config.Config, log *slog.Logger) (dashboard.Source, *sampler.Local, error) {
	if cfg.Source == config.SourceLocal {
		l := sampler.New(sampler.Options{
			Interval:  cfg.PollInterval,
			MaxPoints: cfg.HistoryLimit,
			GPU:       cfg.EnableGPU,
			Logger:    log,
		})
		return l, l, nil
	}
	c, err := metrics.New(cfg.BaseURL, metrics.Options{
		Limit:  cfg.HistoryLimit,
		Logger: log,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, nil, nil
}

func newStack(cfg config.Config, log *slog.Logger) (stack, error) {
	src, local, err := newSource(cfg, log)
	if err != nil {
		return stack{}, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return stack{}, err
	}
	ctl := dashboard.NewController(reconcile.NewSession(cfg.SessionOptions()), src, dashboard.ControllerOptions{
		Compositor: chart.Compositor{SparkPoints: cfg.Policy.SparklinePoints, Location: loc},
		Timeout:    cfg.RequestTimeout,
		Logger:     log,
	})
	log.Debug("dashboard configured", "source", cfg.Source, "range", chart.RangeLabel(cfg.RangeSeconds()))
	return stack{ctl: ctl, local: local}, nil
}
