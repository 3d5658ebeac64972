package historycmder

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/pkg/cliui"
)

const deleteShortDesc string = "Delete a saved prediction"

type deleteCommander struct {
	target
}

func newDeleteCmd() *cobra.Command {
	cmder := &deleteCommander{}

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   deleteShortDesc,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := cmder.client.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("deleting prediction %s: %w", id, err)
			}
			lipgloss.Fprintf(cmd.OutOrStdout(), "  %s Deleted %s\n", cliui.SuccessMark, cliui.NameStyle.Render(id))
			return nil
		},
	}

	cmder.addFlags(cmd)

	return cmd
}
