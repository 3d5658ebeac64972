// Package apicmder provides the history API server command.
package apicmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/churnsense/api"
	"github.com/papercomputeco/churnsense/cmd/churnsense/serve/services"
	"github.com/papercomputeco/churnsense/pkg/config"
	"github.com/papercomputeco/churnsense/pkg/metrics"
)

type apiCommander struct {
	flags struct {
		listen       string
		corsOrigins  string
		sqlitePath   string
		postgresDSN  string
		cacheSize    uint
		kafkaBrokers string
		kafkaTopic   string
	}

	disableMCP bool
	debug      bool
	logFile    string
	viper      *viper.Viper
}

var apiFlags = []string{
	config.FlagAPIListenStandalone,
	config.FlagCORSOrigins,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagCacheSize,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const apiLongDesc string = `Run the history API server.

The API server stores scored customers and serves the prediction history:
  POST   /predictions              Save a prediction
  GET    /predictions              List, search, filter and sort predictions
  GET    /predictions/:id          Show a prediction with insights
  GET    /predictions/:id/reload   Customer attributes for a new prediction
  DELETE /predictions/:id          Delete a prediction
  GET    /metrics                  Prometheus metrics
  POST   /mcp                      MCP tools over the history

Saved predictions are published to Kafka when brokers are configured.`

const apiShortDesc string = "Run the churnsense history API server"

func NewAPICmd() *cobra.Command {
	cmder := &apiCommander{}

	cmd := &cobra.Command{
		Use:   "api",
		Short: apiShortDesc,
		Long:  apiLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.viper, err = config.InitCommandViper(cmd, config.Flags, apiFlags)
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

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListenStandalone, &cmder.flags.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagCORSOrigins, &cmder.flags.corsOrigins)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.flags.postgresDSN)
	config.AddUintFlag(cmd, config.Flags, config.FlagCacheSize, &cmder.flags.cacheSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.flags.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.flags.kafkaTopic)
	cmd.Flags().BoolVar(&cmder.disableMCP, "no-mcp", false, "Disable the /mcp endpoint")

	return cmd
}

func (c *apiCommander) run() error {
	log, closeLog, err := services.NewLogger("api", c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg := config.FromViper(c.viper)
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

	server, err := api.NewServer(api.Config{
		ListenAddr:   cfg.API.Listen,
		AllowOrigins: cfg.API.CORSOrigins,
		Pool:         pool,
		Metrics:      m,
		DisableMCP:   c.disableMCP,
	}, driver, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	config.WatchConfig(c.viper, log, services.RestartNotice(cfg, log))

	return server.Run()
}
