package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the expiry claim out of a session token without
// verifying the signature. The terminal only schedules around the expiry;
// the server alone decides whether the token is actually valid.
func TokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("parse session token: %w", err)
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("read token expiry: %w", err)
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("session token has no expiry")
	}
	return exp.Time, nil
}

// ExpiresWithin reports whether the token lapses inside the window. Parse
// failures count as expiring, so callers refresh rather than ride a token
// they cannot read.
func ExpiresWithin(token string, window time.Duration, now time.Time) bool {
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return exp.Before(now.Add(window))
}
