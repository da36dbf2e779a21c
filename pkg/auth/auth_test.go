package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenFingerprintIsStableAndDistinct(t *testing.T) {
	a := tokenFingerprint("token-a")
	b := tokenFingerprint("token-a")
	c := tokenFingerprint("token-b")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64) // hex-encoded sha256
}

func TestCacheKeyDoesNotContainRawToken(t *testing.T) {
	key := cacheKey("super-secret-token")
	assert.NotContains(t, key, "super-secret-token")
	assert.Contains(t, key, "auth:token:")
}

type countingVerifier struct {
	calls  int
	userID string
	err    error
}

func (c *countingVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	c.calls++
	return c.userID, c.err
}

func TestCachingVerifierWithoutCacheAlwaysCallsInner(t *testing.T) {
	inner := &countingVerifier{userID: "user-1"}
	v := NewCachingVerifier(inner, nil, 0)

	userID, err := v.VerifyToken(context.Background(), "token")
	assert.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, _ = v.VerifyToken(context.Background(), "token")
	assert.Equal(t, 2, inner.calls)
}

func TestCachingVerifierPropagatesInnerError(t *testing.T) {
	inner := &countingVerifier{err: ErrInvalidToken}
	v := NewCachingVerifier(inner, nil, 0)

	_, err := v.VerifyToken(context.Background(), "token")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}
