package configcmder

import (
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/pkg/cliui"
	"github.com/papercomputeco/churnsense/pkg/config"
)

const listLongDesc string = `List all configuration values.

Displays every configuration key and its current value from the
config.toml file stored in the .churnsense/ directory. Keys missing from
the file show their defaults.

Examples:
  churnsense config list`

const listShortDesc string = "List all configuration values"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(cmd.OutOrStdout(), configDir)
		},
	}

	return cmd
}

func runList(w io.Writer, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	printTarget(w, cfger.GetTarget())

	keys := config.ValidConfigKeys()

	// Find the longest key name for alignment.
	maxLen := 0
	for _, k := range keys {
		maxLen = max(maxLen, len(k))
	}

	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		name := cliui.KeyStyle.Render(fmt.Sprintf("%-*s", maxLen, key))
		if value == "" {
			lipgloss.Fprintf(w, "  %s = %s\n", name, cliui.DimStyle.Render("<not set>"))
		} else {
			lipgloss.Fprintf(w, "  %s = %s\n", name, cliui.ValueStyle.Render(fmt.Sprintf("%q", value)))
		}
	}
	lipgloss.Fprintln(w)

	return nil
}
