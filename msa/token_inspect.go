package msa

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry extracts the expiry of a game access token without verifying
// its signature. The launcher only needs the timestamp to decide whether to
// refresh before starting the game; validation is the server's job.
func TokenExpiry(gameAccessToken string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(gameAccessToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("access token has no expiry claim")
	}
	return exp.Time, nil
}

// TokenExpired reports whether the token expires within margin from now.
func TokenExpired(gameAccessToken string, margin time.Duration) bool {
	exp, err := TokenExpiry(gameAccessToken)
	if err != nil {
		return true
	}
	return time.Now().Add(margin).After(exp)
}
