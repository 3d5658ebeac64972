// Package historycmder provides the history command for browsing saved churn
// predictions through the history API.
package historycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/papercomputeco/churnsense/api/client"
	"github.com/papercomputeco/churnsense/pkg/config"
)

const historyLongDesc string = `Browse saved churn predictions.

Predictions are read from the churnsense history API (client.api_target).

Examples:
  churnsense history list --risk High --sort churn_probability
  churnsense history show <id>
  churnsense history delete <id>
  churnsense history browse`

const historyShortDesc string = "Browse saved churn predictions"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newBrowseCmd())

	return cmd
}

// target holds the API target flag shared by every history subcommand.
type target struct {
	apiTarget string
	client    *apiclient.Client
}

func (t *target) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &t.apiTarget)
}

// setup resolves the API target as flag > env > config file > default.
func (t *target) setup(cmd *cobra.Command) error {
	v, err := config.InitCommandViper(cmd, config.Flags, []string{config.FlagAPITarget})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	t.client = apiclient.New(v.GetString("client.api_target"), 0)
	return nil
}
