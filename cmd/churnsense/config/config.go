// Package configcmder provides the config command for managing persistent
// churnsense configuration stored in the .churnsense/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/churnsense/pkg/cliui"
	"github.com/papercomputeco/churnsense/pkg/config"
)

const configLongDesc string = `Manage persistent churnsense configuration.

Configuration is stored as config.toml in the .churnsense/ directory and
provides default values for command flags. CLI flags and CHURNSENSE_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, storage.postgres_dsn, storage.cache_size,
  proxy.listen, proxy.inference_url, proxy.gateway_url, proxy.gateway_model,
  api.listen, api.cors_origins,
  client.proxy_target, client.api_target,
  eventstream.kafka_brokers, eventstream.kafka_topic

The gateway API key is never written to config.toml. Set
CHURNSENSE_GATEWAY_API_KEY in the environment or a .env file.

Use subcommands to manage configuration:
  churnsense config init --preset <name>   Write a preset config.toml
  churnsense config set <key> <value>      Set a configuration value
  churnsense config get <key>              Get a configuration value
  churnsense config list                   List all configuration values

Examples:
  churnsense config init --preset compose
  churnsense config set proxy.inference_url https://churn-model.example.com
  churnsense config get client.api_target
  churnsense config list`

const configShortDesc string = "Manage persistent churnsense configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func printTarget(w io.Writer, target string) {
	lipgloss.Fprintf(w, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(target),
	)
}
