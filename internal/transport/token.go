package transport

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// InspectToken decodes a session token without verifying its signature
// (verification is the server's job) and reports whether it is already
// expired, so the user gets a useful warning before the dial fails.
func InspectToken(token string) error {
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return fmt.Errorf("transport.InspectToken: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if exp.Before(time.Now()) {
		log.Warn().Time("expired_at", exp.Time).Msg("transport: session token is expired")
		return fmt.Errorf("transport.InspectToken: token expired at %s", exp.Time)
	}
	return nil
}
