package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/teledash/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	var paths bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration after merging defaults, the config file,
TELEDASH_* environment variables and flags, as YAML. The output is a valid
config file.

Examples:
  teledash config > ~/.config/teledash/config.yaml
  teledash config --paths`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if paths {
				for _, p := range config.SearchPaths() {
					fmt.Fprintln(out, p)
				}
				return nil
			}
			cfg, err := a.load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&paths, "paths", false, "list the implicit config file locations instead")
	return cmd
}
