package config

import "time"

const (
	envInferenceBaseURL  = "INFERENCE_BASE_URL"
	envInferenceAPIKey   = "INFERENCE_API_KEY"
	envInferenceModel    = "INFERENCE_MODEL"
	envInferenceRPM      = "INFERENCE_RPM"
	envInferenceTPM      = "INFERENCE_TPM"
	envInferenceSafety   = "INFERENCE_SAFETY"
	envInferenceTick     = "INFERENCE_TICK"
	envInferenceBatch    = "INFERENCE_MAX_BATCH"
	envInferenceTimeout  = "INFERENCE_TIMEOUT"
	envInferenceCacheTTL = "INFERENCE_CACHE_TTL"
	envInferenceCacheMax = "INFERENCE_CACHE_MAX"

	defaultInferenceBaseURL  = "https://api.openai.com/v1"
	defaultInferenceModel    = "gpt-4o-mini"
	defaultInferenceRPM      = 20
	defaultInferenceTPM      = 40000
	defaultInferenceSafety   = 0.85
	defaultInferenceBatch    = 0
	defaultInferenceCacheMax = 256
)

const (
	defaultInferenceTick     = 2 * Duration(time.Second)
	defaultInferenceTimeout  = 20 * Duration(time.Second)
	defaultInferenceCacheTTL = 10 * Duration(time.Minute)
)

// InferenceConfig controls explanation generation. Without an API key the
// service runs with a no-op generator.
type InferenceConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	RPM         int
	TPM         int
	Safety      float64
	Tick        Duration
	MaxBatch    int
	CallTimeout Duration
	CacheTTL    Duration
	CacheMax    int
}

// Enabled reports whether a downstream generator is configured.
func (c InferenceConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadInference() InferenceConfig {
	safety := floatEnvOrDefault(envInferenceSafety, defaultInferenceSafety)
	if safety > 1 {
		safety = defaultInferenceSafety
	}
	return InferenceConfig{
		BaseURL:     envOrDefault(envInferenceBaseURL, defaultInferenceBaseURL),
		APIKey:      envOrDefault(envInferenceAPIKey, ""),
		Model:       envOrDefault(envInferenceModel, defaultInferenceModel),
		RPM:         intEnvOrDefault(envInferenceRPM, defaultInferenceRPM),
		TPM:         intEnvOrDefault(envInferenceTPM, defaultInferenceTPM),
		Safety:      safety,
		Tick:        durationEnvOrDefault(envInferenceTick, defaultInferenceTick),
		MaxBatch:    intEnvOrDefault(envInferenceBatch, defaultInferenceBatch),
		CallTimeout: durationEnvOrDefault(envInferenceTimeout, defaultInferenceTimeout),
		CacheTTL:    durationEnvOrDefault(envInferenceCacheTTL, defaultInferenceCacheTTL),
		CacheMax:    intEnvOrDefault(envInferenceCacheMax, defaultInferenceCacheMax),
	}
}
