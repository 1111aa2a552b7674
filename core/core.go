// Package core provides the framework-agnostic token verification engine that
// the transport adapters (HTTP middleware, gRPC interceptors) wrap.
//
// The Core type owns the decision logic around a missing or present token and
// delegates the actual verification to a Validator implementation.
package core

import (
	"context"
	"time"
)

// Validator is the interface the engine verifies tokens through.
// *validator.Validator satisfies it.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Core is the transport-independent verification engine.
type Core struct {
	validator           Validator
	credentialsOptional bool
	logger              Logger
}

// CheckToken verifies a raw token string and returns the validated claims.
//
//   - Empty token with optional credentials: returns (nil, nil).
//   - Empty token with required credentials: returns ErrJWTMissing.
//   - Otherwise the configured Validator decides.
//
// The returned claims are type-asserted by the caller, typically to
// *validator.ValidatedClaims.
func (c *Core) CheckToken(ctx context.Context, token string) (any, error) {
	if token == "" {
		if c.credentialsOptional {
			if c.logger != nil {
				c.logger.Debug("no token provided, but credentials are optional")
			}
			return nil, nil
		}

		if c.logger != nil {
			c.logger.Warn("no token provided and credentials are required")
		}

		return nil, ErrJWTMissing
	}

	start := time.Now()
	claims, err := c.validator.ValidateToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		if c.logger != nil {
			c.logger.Error("token verification failed", "error", err, "duration", duration)
		}

		return nil, err
	}

	if c.logger != nil {
		c.logger.Debug("token verified", "duration", duration)
	}

	return claims, nil
}
