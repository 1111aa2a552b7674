package grpccfaccess

import (
	"errors"

	cfaccess "github.com/edgeguard/go-cfaccess"
	"github.com/edgeguard/go-cfaccess/core"
)

// Option configures the interceptor. Returns error for validation failures.
type Option func(*Interceptor) error

// WithValidator sets the validator used to verify tokens (REQUIRED).
//
// Example:
//
//	interceptor, err := grpccfaccess.New(
//	    grpccfaccess.WithValidator(v),
//	)
func WithValidator(v core.Validator) Option {
	return func(i *Interceptor) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		i.validator = v
		return nil
	}
}

// WithCredentialsOptional lets calls without a token proceed. The handler
// context then carries no claims; use HasClaims to tell the cases apart.
//
// Default: false (a token is required).
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets an optional logger, used by the interceptor and the
// underlying engine. *slog.Logger satisfies the interface directly.
func WithLogger(logger Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithMetrics sets the sink for the per-method check counters.
func WithMetrics(metrics cfaccess.Metrics) Option {
	return func(i *Interceptor) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		i.metrics = metrics
		return nil
	}
}

// WithTokenExtractor replaces the default AssertionMetadataExtractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler replaces the default status-code mapping.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods skips the Access check for the given full method
// names, e.g. "/grpc.health.v1.Health/Check".
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
