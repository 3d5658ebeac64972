// Package versioncmder provides the version command.
package versioncmder

import (
	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/pkg/cliui"
	"github.com/papercomputeco/churnsense/pkg/utils"
)

const versionShortDesc string = "Print the churnsense version"

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: versionShortDesc,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			lipgloss.Fprintf(cmd.OutOrStdout(), "churnsense %s %s\n",
				cliui.NameStyle.Render(utils.Version),
				cliui.DimStyle.Render(utils.BuildInfo()),
			)
		},
	}
}
