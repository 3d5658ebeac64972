package configcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/pkg/cliui"
	"github.com/papercomputeco/churnsense/pkg/config"
)

const initLongDesc string = `Write a preset config.toml.

Presets:
  local     Everything on localhost with SQLite prediction history
  compose   Services addressed by their docker compose names, PostgreSQL
            prediction history and Kafka prediction events

An existing config.toml is only replaced with --force.

Examples:
  churnsense config init
  churnsense config init --preset compose --force`

const initShortDesc string = "Write a preset config.toml"

type initCommander struct {
	preset string
	force  bool
}

func newInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.OutOrStdout(), configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "local", "Preset name ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Replace an existing config.toml")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(w io.Writer, configDir string) error {
	cfg, err := config.PresetConfig(c.preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	target := cfger.GetTarget()

	_, err = os.Stat(target)
	switch {
	case err == nil && !c.force:
		return fmt.Errorf("%s already exists, use --force to replace it", target)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("checking config file: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	printTarget(w, target)
	lipgloss.Fprintf(w, "  %s Wrote the %s preset\n\n", cliui.SuccessMark, cliui.NameStyle.Render(strings.ToLower(c.preset)))
	return nil
}
