package server

import (
	"fmt"
	"strings"

	"github.com/preston-bernstein/nba-live-service/internal/providers"
)

// normalizeProviderName returns a lower-cased provider name, deriving it from the instance when not configured.
// Metrics, breaker names and logs all use it.
func normalizeProviderName(raw string, provider providers.DataProvider) string {
	if raw != "" {
		return strings.ToLower(raw)
	}
	if provider != nil {
		return strings.ToLower(fmt.Sprintf("%T", provider))
	}
	return "provider"
}
