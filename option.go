package cfaccess

import (
	"context"
	"errors"
	"net/http"
)

// Option configures the JWTMiddleware.
// Returns error for validation failures.
type Option func(*JWTMiddleware) error

// TokenValidator defines the interface for token validation. It is
// satisfied by *validator.Validator and by anything else with the same
// ValidateToken method.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// WithValidator sets the validator used to verify tokens (REQUIRED).
//
// Example:
//
//	v, err := validator.New(
//	    validator.ConfigFromEnv(),
//	    keyProvider,
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := cfaccess.New(
//	    cfaccess.WithValidator(v),
//	)
func WithValidator(v TokenValidator) Option {
	return func(m *JWTMiddleware) error {
		if v == nil {
			return ErrValidatorNil
		}
		m.validator = v
		return nil
	}
}

// WithCredentialsOptional sets whether credentials are optional.
// If set to true, a request without a token, or with a token that fails
// validation, passes through with no claims in its context. Handlers that
// need to distinguish authenticated callers check HasClaims.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests should have their
// token validated.
//
// Default: true (OPTIONS requests are validated)
func WithValidateOnOptions(value bool) Option {
	return func(m *JWTMiddleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when errors occur during token
// validation. See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *JWTMiddleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the
// request.
//
// Default: AssertionHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *JWTMiddleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls configures URL patterns to exclude from token
// validation. URLs can be full URLs or just paths.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *JWTMiddleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithExclusionUrlHandler sets a custom function that decides whether a
// request skips token validation entirely. It is the programmable
// alternative to WithExclusionUrls for cases like prefix or method based
// exclusions.
func WithExclusionUrlHandler(handler ExclusionURLHandler) Option {
	return func(m *JWTMiddleware) error {
		if handler == nil {
			return ErrExclusionUrlHandlerNil
		}
		m.exclusionURLHandler = handler
		return nil
	}
}

// WithLogger sets an optional logger for the middleware.
// The logger will be used throughout the validation flow in both the
// middleware and core.
//
// The logger interface is compatible with log/slog.Logger and similar
// loggers.
//
// Example:
//
//	middleware, err := cfaccess.New(
//	    cfaccess.WithValidator(v),
//	    cfaccess.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(m *JWTMiddleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for check outcomes and durations.
//
// Default: NoopMetrics
func WithMetrics(metrics Metrics) Option {
	return func(m *JWTMiddleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer used to span each token check.
//
// Default: NoopTracer
func WithTracer(tracer Tracer) Option {
	return func(m *JWTMiddleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrValidatorNil           = errors.New("validator cannot be nil (use WithValidator)")
	ErrErrorHandlerNil        = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil      = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty     = errors.New("exclusion URLs list cannot be empty")
	ErrExclusionUrlHandlerNil = errors.New("exclusion URL handler cannot be nil")
	ErrLoggerNil              = errors.New("logger cannot be nil")
	ErrMetricsNil             = errors.New("metrics cannot be nil")
	ErrTracerNil              = errors.New("tracer cannot be nil")
)
