// Package churnsensecmder is the churnsense root command.
package churnsensecmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/churnsense/cmd/churnsense/chat"
	configcmder "github.com/papercomputeco/churnsense/cmd/churnsense/config"
	historycmder "github.com/papercomputeco/churnsense/cmd/churnsense/history"
	predictcmder "github.com/papercomputeco/churnsense/cmd/churnsense/predict"
	servecmder "github.com/papercomputeco/churnsense/cmd/churnsense/serve"
	statuscmder "github.com/papercomputeco/churnsense/cmd/churnsense/status"
	versioncmder "github.com/papercomputeco/churnsense/cmd/version"
)

const churnsenseLongDesc string = `ChurnSense AI predicts which telecom customers are about to leave.

Score customers, browse saved predictions and ask ChurnBot about the model:
  churnsense predict        Score a customer's churn risk
  churnsense history list   Browse saved predictions
  churnsense chat           Chat with ChurnBot

Run services using:
  churnsense serve api      Run the history API server
  churnsense serve proxy    Run the proxy server
  churnsense serve          Run both servers together`

const churnsenseShortDesc string = "ChurnSense AI - Customer Churn Prediction"

func NewChurnsenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "churnsense",
		Short:        churnsenseShortDesc,
		Long:         churnsenseLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .churnsense/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(predictcmder.NewPredictCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
