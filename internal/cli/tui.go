package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/teledash/internal/ui"
)

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal dashboard",
		Long: `Open the interactive terminal dashboard.

Keys 1-7 pick a range, [ and ] step through them, ? toggles help and q quits.
The range bar is also clickable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
}

// runTUI drives the dashboard from the Bubble Tea loop. Logs are dropped
// unless a log file is configured, since stderr belongs to the screen.
func (a *app) runTUI(cmd *cobra.Command) error {
	cfg, log, cleanup, err := a.setup(io.Discard)
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := newStack(cfg, log)
	if err != nil {
		return err
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() {
		if err := st.runSampler(ctx); err != nil {
			log.Error("sampler stopped", "error", err)
		}
	}()

	return ui.RunTUI(st.ctl, ui.Options{
		PollInterval: cfg.PollInterval,
		Location:     loc,
		Logger:       log,
	})
}
