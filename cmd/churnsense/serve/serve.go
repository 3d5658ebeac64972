// Package servecmder provides the serve command with subcommands for running services.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/churnsense/api"
	apicmder "github.com/papercomputeco/churnsense/cmd/churnsense/serve/api"
	proxycmder "github.com/papercomputeco/churnsense/cmd/churnsense/serve/proxy"
	"github.com/papercomputeco/churnsense/cmd/churnsense/serve/services"
	"github.com/papercomputeco/churnsense/pkg/config"
	"github.com/papercomputeco/churnsense/pkg/metrics"
	"github.com/papercomputeco/churnsense/proxy"
)

type ServeCommander struct {
	flags struct {
		proxyListen  string
		apiListen    string
		inferenceURL string
		gatewayURL   string
		gatewayModel string
		corsOrigins  string
		sqlitePath   string
		postgresDSN  string
		cacheSize    uint
		kafkaBrokers string
		kafkaTopic   string
	}

	debug   bool
	logFile string
	viper   *viper.Viper
}

var serveFlags = []string{
	config.FlagProxyListen,
	config.FlagAPIListen,
	config.FlagInferenceURL,
	config.FlagGatewayURL,
	config.FlagGatewayModel,
	config.FlagCORSOrigins,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagCacheSize,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run churnsense services.

Use subcommands to run individual services or all services together:
  churnsense serve          Run both proxy and API server together
  churnsense serve api      Run just the API server
  churnsense serve proxy    Run just the proxy server

Settings resolve as flag > CHURNSENSE_* environment > config.toml > default.
Changes to config.toml are reported while running and apply on restart.`

const serveShortDesc string = "Run churnsense services"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, err = config.InitCommandViper(cmd, config.Flags, serveFlags)
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

	config.AddStringFlag(cmd, config.Flags, config.FlagProxyListen, &cmder.flags.proxyListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.flags.apiListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagInferenceURL, &cmder.flags.inferenceURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayURL, &cmder.flags.gatewayURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagGatewayModel, &cmder.flags.gatewayModel)
	config.AddStringFlag(cmd, config.Flags, config.FlagCORSOrigins, &cmder.flags.corsOrigins)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.flags.postgresDSN)
	config.AddUintFlag(cmd, config.Flags, config.FlagCacheSize, &cmder.flags.cacheSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.flags.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.flags.kafkaTopic)
	cmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")

	cmd.AddCommand(apicmder.NewAPICmd())
	cmd.AddCommand(proxycmder.NewProxyCmd())

	return cmd
}

func (c *ServeCommander) run() error {
	log, closeLog, err := services.NewLogger("serve", c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := config.FromViper(c.viper)
	gatewayKey := c.viper.GetString(config.KeyGatewayAPIKey)
	if gatewayKey == "" {
		log.Warn("CHURNSENSE_GATEWAY_API_KEY is not set, chat requests will fail")
	}

	// One registry so the API server's /metrics covers the proxy too.
	m := metrics.New()

	driver, err := services.NewStorageDriver(context.Background(), cfg.Storage, log)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := services.NewPublisher(cfg.EventStream, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	pool, err := services.NewPool(publisher, m, log)
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	p, err := proxy.New(proxy.Config{
		ListenAddr:    cfg.Proxy.Listen,
		InferenceURL:  cfg.Proxy.InferenceURL,
		GatewayURL:    cfg.Proxy.GatewayURL,
		GatewayAPIKey: gatewayKey,
		GatewayModel:  cfg.Proxy.GatewayModel,
		AllowOrigins:  cfg.API.CORSOrigins,
		Metrics:       m,
	}, log)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer p.Close()

	apiServer, err := api.NewServer(api.Config{
		ListenAddr:   cfg.API.Listen,
		AllowOrigins: cfg.API.CORSOrigins,
		Pool:         pool,
		Metrics:      m,
	}, driver, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	defer apiServer.Shutdown()

	config.WatchConfig(c.viper, log, services.RestartNotice(cfg, log))

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("proxy error: %w", err)
		}
	}()

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}
