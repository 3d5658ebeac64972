package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --inference-url
// on both "churnsense serve" and "churnsense serve proxy").
type Flag struct {
	// Name is the long flag name (e.g. "inference-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "i"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "proxy.inference_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagProxyListen  = "proxy-listen"
	FlagAPIListen    = "api-listen"
	FlagInferenceURL = "inference-url"
	FlagGatewayURL   = "gateway-url"
	FlagGatewayModel = "gateway-model"
	FlagCORSOrigins  = "cors-origins"
	FlagSQLite       = "sqlite"
	FlagPostgres     = "postgres"
	FlagCacheSize    = "cache-size"
	FlagKafkaBrokers = "kafka-brokers"
	FlagKafkaTopic   = "kafka-topic"
	FlagAPITarget    = "api-target"
	FlagProxyTarget  = "proxy-target"

	// Standalone subcommand variants use "listen" as the flag name
	// but bind to different viper keys depending on the service.
	FlagProxyListenStandalone = "proxy-listen-standalone"
	FlagAPIListenStandalone   = "api-listen-standalone"
)

// Flags is the registry of every churnsense CLI flag.
var Flags = FlagSet{
	FlagProxyListen: {
		Name:        "proxy-listen",
		Shorthand:   "p",
		ViperKey:    "proxy.listen",
		Description: "Address for the proxy to listen on",
	},
	FlagAPIListen: {
		Name:        "api-listen",
		Shorthand:   "a",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	FlagInferenceURL: {
		Name:        "inference-url",
		Shorthand:   "i",
		ViperKey:    "proxy.inference_url",
		Description: "Churn model inference API URL",
	},
	FlagGatewayURL: {
		Name:        "gateway-url",
		ViperKey:    "proxy.gateway_url",
		Description: "Chat completions endpoint of the model gateway",
	},
	FlagGatewayModel: {
		Name:        "gateway-model",
		Shorthand:   "m",
		ViperKey:    "proxy.gateway_model",
		Description: "Model requested from the gateway",
	},
	FlagCORSOrigins: {
		Name:        "cors-origins",
		ViperKey:    "api.cors_origins",
		Description: "Comma separated CORS allow list",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite database (default: in-memory)",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "storage.postgres_dsn",
		Description: "PostgreSQL connection string (overrides --sqlite)",
	},
	FlagCacheSize: {
		Name:        "cache-size",
		ViperKey:    "storage.cache_size",
		Description: "Number of predictions held in the read cache (0 disables it)",
	},
	FlagKafkaBrokers: {
		Name:        "kafka-brokers",
		ViperKey:    "eventstream.kafka_brokers",
		Description: "Comma separated Kafka brokers for prediction events (default: events dropped)",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "eventstream.kafka_topic",
		Description: "Kafka topic for prediction events",
	},
	FlagAPITarget: {
		Name:        "api-target",
		Shorthand:   "a",
		ViperKey:    "client.api_target",
		Description: "churnsense API server URL",
	},
	FlagProxyTarget: {
		Name:        "proxy-target",
		Shorthand:   "p",
		ViperKey:    "client.proxy_target",
		Description: "churnsense proxy URL",
	},
	FlagProxyListenStandalone: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "proxy.listen",
		Description: "Address for the proxy to listen on",
	},
	FlagAPIListenStandalone: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

// InitCommandViper runs InitViper for the command's --config-dir and binds
// the given registry flags of cmd, so values resolve as flag > env > config
// file > default. Call it in PreRunE once flags are parsed.
func InitCommandViper(cmd *cobra.Command, fs FlagSet, registryKeys []string) (*viper.Viper, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := InitViper(configDir)
	if err != nil {
		return nil, err
	}

	BindRegisteredFlags(v, cmd, fs, registryKeys)
	return v, nil
}
