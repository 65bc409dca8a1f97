package authsystem

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/authsystem/jwt"
)

// ValidateSession checks a session token's signature, issuer, audience and
// expiry without touching the store. Every failure wraps ErrUnauthorized
// together with the codec's failure class (jwt.ErrMalformed,
// jwt.ErrInvalidSignature, jwt.ErrExpired, ...).
func (e *Engine) ValidateSession(token string) (*SessionClaims, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	var start time.Time
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start = time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	claims, err := e.jwtManager.Validate(token)
	if err != nil {
		e.metricInc(MetricSessionRejected)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		e.metricInc(MetricSessionRejected)
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, jwt.ErrInvalidClaims)
	}

	out := &SessionClaims{
		UserID:  userID,
		Name:    claims.Name,
		Email:   claims.Email,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
