package config

const (
	defaultProxyListen  = ":8080"
	defaultAPIListen    = ":8081"
	defaultInferenceURL = "http://localhost:8000"
	defaultGatewayURL   = "https://ai.gateway.lovable.dev/v1/chat/completions"
	defaultGatewayModel = "google/gemini-3-flash-preview"
	defaultCORSOrigins  = "*"
	defaultCacheSize    = 512

	defaultClientProxyTarget = "http://localhost:8080"
	defaultClientAPITarget   = "http://localhost:8081"

	defaultKafkaTopic = "churnsense.predictions"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			CacheSize: defaultCacheSize,
		},
		Proxy: ProxyConfig{
			Listen:       defaultProxyListen,
			InferenceURL: defaultInferenceURL,
			GatewayURL:   defaultGatewayURL,
			GatewayModel: defaultGatewayModel,
		},
		API: APIConfig{
			Listen:      defaultAPIListen,
			CORSOrigins: defaultCORSOrigins,
		},
		Client: ClientConfig{
			ProxyTarget: defaultClientProxyTarget,
			APITarget:   defaultClientAPITarget,
		},
		EventStream: EventStreamConfig{
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
