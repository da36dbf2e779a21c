package config

import (
	"os"
	"strconv"
)

// AuthConfig points at the external token→user_id resolution backend.
// Authentication itself is explicitly out of scope, treated as an external
// collaborator with a minimal contract — this only configures the HTTP
// call pkg/auth makes to resolve a bearer token, plus the cache TTL in
// front of it.
type AuthConfig struct {
	// ProviderURL is the token-verification endpoint; pkg/auth sends a GET
	// with the bearer token and expects {"user_id": "..."} back.
	ProviderURL string

	// APIKeyEnv names the env var holding the provider's service API key,
	// sent as a header on the verification call.
	APIKeyEnv string

	// CacheTTL is how long a verified token's user_id is cached after
	// verification resolves token -> user_id.
	CacheTTL int // seconds
}

// DefaultAuthCacheTTLSeconds is used when AUTH_CACHE_TTL_SECONDS is unset.
const DefaultAuthCacheTTLSeconds = 300

func resolveAuthConfig() *AuthConfig {
	cfg := &AuthConfig{
		ProviderURL: os.Getenv("AUTH_PROVIDER_URL"),
		APIKeyEnv:   "AUTH_PROVIDER_API_KEY",
		CacheTTL:    DefaultAuthCacheTTLSeconds,
	}

	if v := os.Getenv("AUTH_PROVIDER_API_KEY_ENV"); v != "" {
		cfg.APIKeyEnv = v
	}

	if v := os.Getenv("AUTH_CACHE_TTL_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.CacheTTL = seconds
		}
	}

	return cfg
}
