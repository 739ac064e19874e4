// Package cli wires configuration, the metrics source and the dashboard
// surfaces into the teledash command tree.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Dicklesworthstone/teledash/internal/config"
	"github.com/Dicklesworthstone/teledash/internal/errs"
	"github.com/Dicklesworthstone/teledash/internal/logging"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds a fresh command tree. Without a subcommand it opens the
// terminal dashboard.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "teledash",
		Short: "Rolling CPU, memory and GPU telemetry dashboard",
		Long: `teledash shows a rolling view of host telemetry: CPU, memory and GPU
usage and temperatures, with range switching and a LIVE/OFFLINE indicator.

It reads from a metrics service over HTTP (source: http) or samples the
local host directly (source: local).

Examples:
  teledash
  teledash --range 6h
  teledash serve --listen :8899 --out /tmp/charts
  teledash snapshot --out ./charts`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}

	d := config.Default()
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/teledash/config.yaml)")
	pf.String("source", d.Source, "metrics source: http or local")
	pf.String("base-url", d.BaseURL, "metrics service API base URL")
	pf.Duration("range", d.Range, "initial display window")
	pf.Duration("poll-interval", d.PollInterval, "latest-sample poll interval")
	pf.Duration("timeout", d.RequestTimeout, "per-request timeout")
	pf.Int("history-limit", d.HistoryLimit, "max points per history request (0: service default)")
	pf.String("timezone", d.Timezone, "IANA zone for time labels")
	pf.Bool("gpu", d.EnableGPU, "sample the GPU (local source only)")
	pf.String("log-level", d.LogLevel, "debug, info, warn or error")
	pf.String("log-format", d.LogFormat, "text or json")
	pf.String("log-file", d.LogFile, "write logs to this file")

	for key, flag := range map[string]string{
		"source":          "source",
		"base_url":        "base-url",
		"range":           "range",
		"poll_interval":   "poll-interval",
		"request_timeout": "timeout",
		"history_limit":   "history-limit",
		"timezone":        "timezone",
		"gpu":             "gpu",
		"log_level":       "log-level",
		"log_format":      "log-format",
		"log_file":        "log-file",
	} {
		_ = a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		a.tuiCmd(),
		a.serveCmd(),
		a.snapshotCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration problems and 1 for everything else.
func exitCode(err error) int {
	if errs.Is(err, errs.Config) {
		return 2
	}
	return 1
}

func (a *app) load() (config.Config, error) {
	return config.Load(a.v, a.cfgFile)
}

// logger opens the configured logger. Output goes to fallback unless a log
// file is set.
func (a *app) logger(cfg config.Config, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	log, closer, err := logging.Open(cfg.LogLevel, cfg.LogFormat, cfg.LogFile, fallback)
	if err != nil {
		return nil, nil, errs.Wrap(err, errs.Config, "logging", "invalid logging settings")
	}
	return log, closer, nil
}

// setup loads the configuration and the logger in one step.
func (a *app) setup(fallback io.Writer) (config.Config, *slog.Logger, func(), error) {
	cfg, err := a.load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	log, closer, err := a.logger(cfg, fallback)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	cleanup := func() {
		if cerr := closer.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "teledash: closing log file: %v\n", cerr)
		}
	}
	return cfg, log, cleanup, nil
}
