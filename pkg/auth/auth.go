// Package auth resolves the bearer token on every request to a user_id, and
// separately checks the shared-secret header scheduled/cron callers send.
// Token verification itself is treated as an external collaborator with a
// minimal contract, authentication proper being out of scope here: this
// package defines that contract (Verifier) and a cache in front of it, not
// the identity provider.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relaysocial/orchestrator/pkg/config"
)

// ErrInvalidToken is returned when the provider rejects a token outright.
var ErrInvalidToken = errors.New("auth: invalid token")

// Verifier resolves a bearer token to the user_id it authenticates. The
// concrete identity provider behind it (Supabase, an OIDC issuer, anything)
// is out of scope here; only the contract is.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (userID string, err error)
}

// HTTPVerifier calls an external provider's token-verification endpoint.
// It is the minimal concrete collaborator: GET the endpoint with the token as
// a bearer Authorization header, read back {"user_id": "..."}.
type HTTPVerifier struct {
	providerURL string
	apiKey      string
	httpClient  *http.Client
}

// NewHTTPVerifier builds an HTTPVerifier from configuration. apiKeyEnv names
// the environment variable holding the provider's service key.
func NewHTTPVerifier(cfg *config.AuthConfig) *HTTPVerifier {
	return &HTTPVerifier{
		providerURL: cfg.ProviderURL,
		apiKey:      os.Getenv(cfg.APIKeyEnv),
		httpClient:  &http.Client{Timeout: 5 * time.Second},
	}
}

type verifyResponse struct {
	UserID string `json:"user_id"`
}

// VerifyToken implements Verifier.
func (v *HTTPVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.providerURL, nil)
	if err != nil {
		return "", fmt.Errorf("auth: build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if v.apiKey != "" {
		req.Header.Set("apikey", v.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth: provider returned status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("auth: decode verify response: %w", err)
	}
	if out.UserID == "" {
		return "", ErrInvalidToken
	}
	return out.UserID, nil
}

// CachingVerifier wraps a Verifier with a Redis-backed TTL cache keyed by
// token, so a hot-path request never re-verifies a token it already checked
// within the cache window.
type CachingVerifier struct {
	inner Verifier
	cache *redis.Client
	ttl   time.Duration
}

// NewCachingVerifier wraps inner with a cache of the given TTL. A nil cache
// client disables caching (every call reaches inner), useful in tests.
func NewCachingVerifier(inner Verifier, cache *redis.Client, ttl time.Duration) *CachingVerifier {
	return &CachingVerifier{inner: inner, cache: cache, ttl: ttl}
}

// tokenFingerprint hashes the raw token so it never ends up stored verbatim
// as a Redis key (bearer tokens are credentials, not identifiers).
func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func cacheKey(token string) string {
	return "auth:token:" + tokenFingerprint(token)
}

// VerifyToken implements Verifier, consulting the cache before calling inner.
func (v *CachingVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	key := cacheKey(token)

	if v.cache != nil {
		if userID, err := v.cache.Get(ctx, key).Result(); err == nil {
			return userID, nil
		}
	}

	userID, err := v.inner.VerifyToken(ctx, token)
	if err != nil {
		return "", err
	}

	if v.cache != nil {
		if err := v.cache.Set(ctx, key, userID, v.ttl).Err(); err != nil {
			// Cache write failure doesn't invalidate a successful verification;
			// the next request just re-verifies against the provider.
			_ = err
		}
	}

	return userID, nil
}
