// Package proxycmder provides the edge proxy server command.
package proxycmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/churnsense/cmd/churnsense/serve/services"
	"github.com/papercomputeco/churnsense/pkg/config"
	"github.com/papercomputeco/churnsense/proxy"
)

type proxyCommander struct {
	flags struct {
		listen       string
		inferenceURL string
		gatewayURL   string
		gatewayModel string
		corsOrigins  string
	}

	debug   bool
	logFile string
	viper   *viper.Viper
}

var proxyFlags = []string{
	config.FlagProxyListenStandalone,
	config.FlagInferenceURL,
	config.FlagGatewayURL,
	config.FlagGatewayModel,
	config.FlagCORSOrigins,
}

const proxyLongDesc string = `Run the edge proxy server.

The proxy answers the churn prediction app:
  POST /predict   Score a customer with the inference API and add insights
  POST /chat      Stream a ChurnBot reply from the model gateway
  GET  /health    Report inference API health

The gateway API key is read from CHURNSENSE_GATEWAY_API_KEY, which may be
set in a .env file in the working directory or the .churnsense/ directory.`

const proxyShortDesc string = "Run the churnsense edge proxy"

func NewProxyCmd() *cobra.Command {
	cmder := &proxyCommander{}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: proxyShortDesc,
		Long:  proxyLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, err = config.InitCommandViper(cmd, config.Flags, proxyFlags)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.logFile, _ = cmd.Flags().GetString("log-file")

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyListenStandalone, &cmder.flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagInferenceURL, &cmder.flags.inferenceURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayURL, &cmder.flags.gatewayURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayModel, &cmder.flags.gatewayModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagCORSOrigins, &cmder.flags.corsOrigins)

	return cmd
}

func (c *proxyCommander) run() error {
	log, closeLog, err := services.NewLogger("proxy", c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := config.FromViper(c.viper)
	gatewayKey := c.viper.GetString(config.KeyGatewayAPIKey)
	if gatewayKey == "" {
		log.Warn("CHURNSENSE_GATEWAY_API_KEY is not set, chat requests will fail")
	}

	p, err := proxy.New(proxy.Config{
		ListenAddr:    cfg.Proxy.Listen,
		InferenceURL:  cfg.Proxy.InferenceURL,
		GatewayURL:    cfg.Proxy.GatewayURL,
		GatewayAPIKey: gatewayKey,
		GatewayModel:  cfg.Proxy.GatewayModel,
		AllowOrigins:  cfg.API.CORSOrigins,
	}, log)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer p.Close()

	config.WatchConfig(c.viper, log, services.RestartNotice(cfg, log))

	return p.Run()
}
