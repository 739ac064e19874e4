package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/teledash/internal/dashboard"
	"github.com/Dicklesworthstone/teledash/internal/svg"
)

func (a *app) snapshotCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render one frame to SVG files and exit",
		Long: `Fetch status and history once, render every chart region to an SVG
file and write readouts.json next to them. Exits non-zero when the history
fetch fails.

Examples:
  teledash snapshot --out ./charts
  teledash snapshot --out ./charts --range 24h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSnapshot(cmd, outDir)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

func (a *app) runSnapshot(cmd *cobra.Command, outDir string) error {
	cfg, log, cleanup, err := a.setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	st, err := newStack(cfg, log)
	if err != nil {
		return err
	}
	if st.local != nil {
		// CPU usage is a delta; take a baseline and one real sample.
		st.local.Collect()
		time.Sleep(min(cfg.PollInterval, time.Second))
		st.local.Collect()
	}

	frame, err := dashboard.Once(cmd.Context(), st.ctl)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	dir, err := svg.NewDirSurface(outDir, log)
	if err != nil {
		return err
	}
	dir.SetConnection(frame.Connection)
	dir.Apply(frame)
	if err := dir.Err(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", outDir, frame.Meta)
	return nil
}
