package echocfaccess

import (
	"errors"

	cfaccess "github.com/edgeguard/go-cfaccess"
)

// Option configures the Echo middleware. Returns error for validation
// failures.
type Option func(*middlewareConfig) error

// WithErrorHandler sets the handler that renders failed checks.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(config *middlewareConfig) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		config.errorHandler = handler
		return nil
	}
}

// WithContextKey sets the Echo context key claims are stored under.
func WithContextKey(key string) Option {
	return func(config *middlewareConfig) error {
		if key == "" {
			return errors.New("context key cannot be empty")
		}
		config.contextKey = key
		return nil
	}
}

// WithMiddlewareOptions forwards options to the underlying
// cfaccess.JWTMiddleware, e.g. cfaccess.WithCredentialsOptional or
// cfaccess.WithTokenExtractor. A cfaccess.WithErrorHandler passed here is
// overridden; use WithErrorHandler on this package instead.
func WithMiddlewareOptions(opts ...cfaccess.Option) Option {
	return func(config *middlewareConfig) error {
		config.middlewareOpts = append(config.middlewareOpts, opts...)
		return nil
	}
}
