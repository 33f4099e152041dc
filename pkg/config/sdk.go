package config

import "time"

// SDKConfig holds runtime configuration for the telemetry SDK.
type SDKConfig struct {
	CollectorURL   string
	APIKey         string
	Environment    string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	MaxQueued      int
	MetricsEnabled bool
}

// LoadSDKConfig constructs an SDKConfig from environment variables.
func LoadSDKConfig() SDKConfig {
	return SDKConfig{
		CollectorURL:   GetString("YELIX_COLLECTOR_URL", "https://collector.yelix.dev"),
		APIKey:         GetString("YELIX_API_KEY", ""),
		Environment:    GetString("YELIX_ENVIRONMENT", "development"),
		TokenTTL:       GetSeconds("YELIX_TOKEN_TTL_SECONDS", 2*time.Minute),
		RequestTimeout: GetSeconds("YELIX_REQUEST_TIMEOUT_SECONDS", 5*time.Second),
		MaxQueued:      GetInt("YELIX_MAX_QUEUED_EVENTS", 1024),
		MetricsEnabled: GetBool("YELIX_METRICS_ENABLED", false),
	}
}
