package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"packloop-client/internal/domain"
	"packloop-client/internal/logger"
)

const (
	profileMaxRetries   = 2
	profileRetryBackoff = 2 * time.Second
)

// GetBusinessProfile fetches the operating business's profile. Network and
// timeout failures are retried up to two times with a fixed backoff; every
// other error class returns immediately.
func (c *Client) GetBusinessProfile(ctx context.Context) (*domain.BusinessProfile, error) {
	var lastErr error
	for attempt := 0; attempt <= profileMaxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying business profile fetch", "attempt", attempt, "backoff", profileRetryBackoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(profileRetryBackoff):
			}
		}

		var env envelope
		err := c.getJSON(ctx, "/business/profile", nil, &env)
		if err == nil {
			var profile domain.BusinessProfile
			if err := json.Unmarshal(env.Data, &profile); err != nil {
				return nil, fmt.Errorf("unrecognized business profile shape: %w", err)
			}
			return &profile, nil
		}
		if !errors.Is(err, ErrNetwork) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
