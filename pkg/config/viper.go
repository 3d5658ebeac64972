package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/churnsense/pkg/dotdir"
)

const (
	envPrefix  = "CHURNSENSE"
	dotEnvFile = ".env"

	// KeyGatewayAPIKey is the viper key of the gateway API key. It is only
	// read from the environment (CHURNSENSE_GATEWAY_API_KEY), never from
	// config.toml.
	KeyGatewayAPIKey = "gateway_api_key"
)

// InitViper creates and returns a configured *viper.Viper.
// It loads .env files, sets defaults from NewDefaultConfig(), reads the
// config.toml file (if found via dotdir resolution), and binds environment
// variables with the CHURNSENSE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CHURNSENSE_PROXY_LISTEN, CHURNSENSE_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	v.AddConfigPath(target)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. .env files never override variables already in the environment.
	// The working directory is loaded first so it wins over the config dir.
	if err := loadDotEnv(dotEnvFile, filepath.Join(target, dotEnvFile)); err != nil {
		return nil, err
	}

	// 4. Environment variables: CHURNSENSE_PROXY_LISTEN, CHURNSENSE_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// loadDotEnv loads every existing file in paths into the process environment.
func loadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// WatchConfig calls onChange with a freshly loaded Config whenever the
// config.toml read by v is written. It returns false when v read no config
// file and there is nothing to watch.
func WatchConfig(v *viper.Viper, log *slog.Logger, onChange func(*Config)) bool {
	path := v.ConfigFileUsed()
	if path == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		data, err := os.ReadFile(e.Name)
		if err != nil {
			log.Warn("could not read changed config", "path", e.Name, "error", err)
			return
		}

		cfg, err := ParseConfigTOML(data)
		if err != nil {
			log.Warn("ignoring invalid config change", "path", e.Name, "error", err)
			return
		}
		applyDefaults(cfg)

		log.Info("config file changed", "path", e.Name, "op", e.Op.String())
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()

	return true
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.cache_size", d.Storage.CacheSize)

	// Proxy
	v.SetDefault("proxy.listen", d.Proxy.Listen)
	v.SetDefault("proxy.inference_url", d.Proxy.InferenceURL)
	v.SetDefault("proxy.gateway_url", d.Proxy.GatewayURL)
	v.SetDefault("proxy.gateway_model", d.Proxy.GatewayModel)

	// API
	v.SetDefault("api.listen", d.API.Listen)
	v.SetDefault("api.cors_origins", d.API.CORSOrigins)

	// Client
	v.SetDefault("client.proxy_target", d.Client.ProxyTarget)
	v.SetDefault("client.api_target", d.Client.APITarget)

	// Event stream
	v.SetDefault("eventstream.kafka_brokers", d.EventStream.KafkaBrokers)
	v.SetDefault("eventstream.kafka_topic", d.EventStream.KafkaTopic)

	// Secrets are env-only but registered so AutomaticEnv resolves them.
	v.SetDefault(KeyGatewayAPIKey, "")
}

// FromViper resolves the effective configuration from v, after flags have
// been bound.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			CacheSize:   v.GetUint("storage.cache_size"),
		},
		Proxy: ProxyConfig{
			Listen:       v.GetString("proxy.listen"),
			InferenceURL: v.GetString("proxy.inference_url"),
			GatewayURL:   v.GetString("proxy.gateway_url"),
			GatewayModel: v.GetString("proxy.gateway_model"),
		},
		API: APIConfig{
			Listen:      v.GetString("api.listen"),
			CORSOrigins: v.GetString("api.cors_origins"),
		},
		Client: ClientConfig{
			ProxyTarget: v.GetString("client.proxy_target"),
			APITarget:   v.GetString("client.api_target"),
		},
		EventStream: EventStreamConfig{
			KafkaBrokers: v.GetString("eventstream.kafka_brokers"),
			KafkaTopic:   v.GetString("eventstream.kafka_topic"),
		},
	}
}
