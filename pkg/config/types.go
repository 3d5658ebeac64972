package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent churnsense configuration stored as
// config.toml in the .churnsense/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Proxy       ProxyConfig       `toml:"proxy"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig holds prediction history storage settings used by the API
// server. PostgresDSN wins over SQLitePath when both are set; with neither
// the history lives in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	CacheSize   uint   `toml:"cache_size,omitempty"`
}

// ProxyConfig holds edge proxy settings.
type ProxyConfig struct {
	Listen       string `toml:"listen,omitempty"`
	InferenceURL string `toml:"inference_url,omitempty"`
	GatewayURL   string `toml:"gateway_url,omitempty"`
	GatewayModel string `toml:"gateway_model,omitempty"`
}

// APIConfig holds history API server settings.
type APIConfig struct {
	Listen      string `toml:"listen,omitempty"`
	CORSOrigins string `toml:"cors_origins,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to the running
// proxy and API servers (e.g. churnsense chat, churnsense predict).
// Values are full URLs (scheme + host + port).
type ClientConfig struct {
	ProxyTarget string `toml:"proxy_target,omitempty"`
	APITarget   string `toml:"api_target,omitempty"`
}

// EventStreamConfig holds prediction event publishing settings. Events are
// dropped when KafkaBrokers is empty.
type EventStreamConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"storage.cache_size": {
		get: func(c *Config) string {
			if c.Storage.CacheSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Storage.CacheSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for storage.cache_size: %w", err)
			}
			c.Storage.CacheSize = uint(n)
			return nil
		},
	},
	"proxy.listen": {
		get: func(c *Config) string { return c.Proxy.Listen },
		set: func(c *Config, v string) error { c.Proxy.Listen = v; return nil },
	},
	"proxy.inference_url": {
		get: func(c *Config) string { return c.Proxy.InferenceURL },
		set: func(c *Config, v string) error { c.Proxy.InferenceURL = v; return nil },
	},
	"proxy.gateway_url": {
		get: func(c *Config) string { return c.Proxy.GatewayURL },
		set: func(c *Config, v string) error { c.Proxy.GatewayURL = v; return nil },
	},
	"proxy.gateway_model": {
		get: func(c *Config) string { return c.Proxy.GatewayModel },
		set: func(c *Config, v string) error { c.Proxy.GatewayModel = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"api.cors_origins": {
		get: func(c *Config) string { return c.API.CORSOrigins },
		set: func(c *Config, v string) error { c.API.CORSOrigins = v; return nil },
	},
	"client.proxy_target": {
		get: func(c *Config) string { return c.Client.ProxyTarget },
		set: func(c *Config, v string) error { c.Client.ProxyTarget = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"eventstream.kafka_brokers": {
		get: func(c *Config) string { return c.EventStream.KafkaBrokers },
		set: func(c *Config, v string) error { c.EventStream.KafkaBrokers = v; return nil },
	},
	"eventstream.kafka_topic": {
		get: func(c *Config) string { return c.EventStream.KafkaTopic },
		set: func(c *Config, v string) error { c.EventStream.KafkaTopic = v; return nil },
	},
}
