package config

import "strings"

// MetricsConfig controls telemetry export settings.
type MetricsConfig struct {
	Enabled      bool
	Port         string
	OtlpEndpoint string // host:port, scheme stripped
	ServiceName  string
	OtlpInsecure bool
}

func loadMetrics() MetricsConfig {
	endpoint, insecure := otlpEndpoint(envOrDefault(envOtelEndpoint, ""), boolEnvOrDefault(envOtelInsecure, true))
	return MetricsConfig{
		Enabled:      boolEnvOrDefault(envMetricsOn, true),
		Port:         envOrDefault(envMetricsPort, defaultMetricsPort),
		OtlpEndpoint: endpoint,
		ServiceName:  envOrDefault(envOtelService, "nba-live-service"),
		OtlpInsecure: insecure,
	}
}

// otlpEndpoint accepts the URL form collectors usually document. An explicit
// scheme decides transport security over the insecure flag.
func otlpEndpoint(raw string, insecure bool) (string, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "https://"):
		return strings.TrimSuffix(strings.TrimPrefix(raw, "https://"), "/"), false
	case strings.HasPrefix(raw, "http://"):
		return strings.TrimSuffix(strings.TrimPrefix(raw, "http://"), "/"), true
	default:
		return raw, insecure
	}
}
