package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "business-1",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestStaticTokenProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns the configured token", func(t *testing.T) {
		provider := NewStaticTokenProvider("abc")
		token, err := provider.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, "abc", token)
	})

	t.Run("Empty token errors", func(t *testing.T) {
		provider := NewStaticTokenProvider("")
		_, err := provider.AccessToken(ctx)
		assert.ErrorIs(t, err, ErrNoToken)
	})
}

func TestTokenExpiry(t *testing.T) {
	t.Run("Extracts the exp claim without verifying", func(t *testing.T) {
		expires := time.Now().Add(time.Hour).Truncate(time.Second)
		got, err := TokenExpiry(signedToken(t, expires))
		require.NoError(t, err)
		assert.True(t, got.Equal(expires))
	})

	t.Run("Garbage token is rejected", func(t *testing.T) {
		_, err := TokenExpiry("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRefreshingTokenSource(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("Caches until near expiry", func(t *testing.T) {
		calls := 0
		fresh := signedToken(t, base.Add(time.Hour))
		source := NewRefreshingTokenSource(func(ctx context.Context) (string, error) {
			calls++
			return fresh, nil
		}, time.Minute)
		source.now = func() time.Time { return base }

		first, err := source.AccessToken(ctx)
		require.NoError(t, err)
		second, err := source.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, calls)
	})

	t.Run("Refreshes inside the leeway window", func(t *testing.T) {
		calls := 0
		source := NewRefreshingTokenSource(func(ctx context.Context) (string, error) {
			calls++
			// each refresh hands out a token expiring an hour from issue
			return signedToken(t, base.Add(time.Duration(calls)*time.Hour)), nil
		}, time.Minute)
		now := base
		source.now = func() time.Time { return now }

		_, err := source.AccessToken(ctx)
		require.NoError(t, err)

		// 30 seconds before expiry is inside the one minute leeway
		now = base.Add(time.Hour - 30*time.Second)
		_, err = source.AccessToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("Refresh failure propagates", func(t *testing.T) {
		source := NewRefreshingTokenSource(func(ctx context.Context) (string, error) {
			return "", errors.New("auth backend unreachable")
		}, time.Minute)

		_, err := source.AccessToken(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token refresh failed")
	})

	t.Run("Refresh returning garbage is rejected", func(t *testing.T) {
		source := NewRefreshingTokenSource(func(ctx context.Context) (string, error) {
			return "not-a-jwt", nil
		}, time.Minute)

		_, err := source.AccessToken(ctx)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
