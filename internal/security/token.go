package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("no access token available")
	ErrInvalidToken = errors.New("invalid token")
)

// TokenProvider supplies the bearer token attached to every platform API
// request. Injected into the API client at construction time; there is no
// process-wide token registry.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token. Used when the caller manages
// refresh externally (tests, one-shot CLI runs).
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) AccessToken(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", ErrNoToken
	}
	return p.token, nil
}

// RefreshFunc exchanges whatever credentials the caller holds for a fresh
// access token. The auth backend itself is an external collaborator.
type RefreshFunc func(ctx context.Context) (string, error)

// RefreshingTokenSource caches an access token and refreshes it through the
// injected callback once the token's exp claim is within the leeway window.
type RefreshingTokenSource struct {
	mu      sync.Mutex
	token   string
	expires time.Time
	refresh RefreshFunc
	leeway  time.Duration
	now     func() time.Time
}

func NewRefreshingTokenSource(refresh RefreshFunc, leeway time.Duration) *RefreshingTokenSource {
	return &RefreshingTokenSource{
		refresh: refresh,
		leeway:  leeway,
		now:     time.Now,
	}
}

func (s *RefreshingTokenSource) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && (s.expires.IsZero() || s.now().Add(s.leeway).Before(s.expires)) {
		return s.token, nil
	}

	token, err := s.refresh(ctx)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	expires, err := TokenExpiry(token)
	if err != nil {
		return "", err
	}
	s.token = token
	s.expires = expires
	return token, nil
}

// TokenExpiry extracts the exp claim from a JWT without verifying its
// signature. Signature verification is the server's job; the client only
// needs to know when to refresh. A token with no exp claim never expires
// locally (zero time).
func TokenExpiry(tokenString string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}
