package cfaccess

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edgeguard/go-cfaccess/core"
)

type JWTMiddleware struct {
	core                *core.Core
	validator           TokenValidator
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	credentialsOptional bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the
// stack. NewZapLogger, NewZerologLogger, and NewLogrusLogger adapt the
// usual third-party loggers to it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from token validation.
type ExclusionURLHandler func(r *http.Request) bool

// Metric and span names emitted by CheckJWT.
const (
	metricChecksTotal          = "cfaccess_checks_total"
	metricCheckDurationSeconds = "cfaccess_check_duration_seconds"
	spanCheckJWT               = "cfaccess.check_jwt"
)

// New constructs a new JWTMiddleware instance with the supplied options.
// All parameters are passed via options (pure options pattern).
//
// Example:
//
//	middleware, err := cfaccess.New(
//	    cfaccess.WithValidator(v),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*JWTMiddleware, error) {
	m := &JWTMiddleware{
		// Set secure defaults before applying options
		validateOnOptions:   true,  // Validate OPTIONS by default
		credentialsOptional: false, // Credentials required by default
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.validator == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrValidatorNil)
	}

	m.applyDefaults()

	if err := m.createCore(); err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	return m, nil
}

// applyDefaults sets default values for optional fields not set by options.
func (m *JWTMiddleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AssertionHeaderTokenExtractor
	}
	if m.metrics == nil {
		m.metrics = &NoopMetrics{}
	}
	if m.tracer == nil {
		m.tracer = &NoopTracer{}
	}
}

// createCore creates the core.Core instance with the configured options.
func (m *JWTMiddleware) createCore() error {
	coreOpts := []core.Option{
		core.WithValidator(m.validator),
		core.WithCredentialsOptional(m.credentialsOptional),
	}

	if m.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(m.logger))
	}

	coreInstance, err := core.New(coreOpts...)
	if err != nil {
		return err
	}
	m.core = coreInstance
	return nil
}

// GetClaims retrieves claims from the context with type safety using
// generics.
//
// Example:
//
//	claims, err := cfaccess.GetClaims[*validator.ValidatedClaims](r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get claims", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(claims.Email)
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims from the context or panics.
// Use only when you are certain claims exist (e.g., after the middleware
// has run with credentials required).
func MustGetClaims[T any](ctx context.Context) T {
	claims, err := core.GetClaims[T](ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims checks if claims exist in the context.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}

// CheckJWT is the main JWTMiddleware function which performs the main
// logic. It is passed a http.Handler which will be called if the token
// passes validation.
func (m *JWTMiddleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// If there's an exclusion handler and the URL matches, skip validation
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			if m.logger != nil {
				m.logger.Debug("skipping token validation for excluded URL",
					"method", r.Method,
					"path", r.URL.Path)
			}
			next.ServeHTTP(w, r)
			return
		}

		// If we don't validate on OPTIONS and this is OPTIONS
		// then continue onto next without validating.
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			if m.logger != nil {
				m.logger.Debug("skipping token validation for OPTIONS request")
			}
			next.ServeHTTP(w, r)
			return
		}

		span := m.tracer.StartSpan(spanCheckJWT)
		defer span.Finish()

		start := time.Now()

		token, err := m.tokenExtractor(r)
		if err != nil {
			// This is not ErrJWTMissing because an error here means that the
			// tokenExtractor had an error and _not_ that the token was missing.
			if m.logger != nil {
				m.logger.Error("failed to extract token from request",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)
			}
			m.observeCheck(span, start, "extraction_error")
			m.errorHandler(w, r, fmt.Errorf("error extracting token: %w", err))
			return
		}

		// Core handles empty token logic based on the credentialsOptional
		// setting.
		validToken, err := m.core.CheckToken(r.Context(), token)
		if err != nil {
			// With optional credentials an unverifiable token is treated
			// like no token at all: the request proceeds anonymously.
			if m.credentialsOptional {
				if m.logger != nil {
					m.logger.Warn("ignoring invalid token, credentials are optional",
						"error", err,
						"method", r.Method,
						"path", r.URL.Path)
				}
				m.observeCheck(span, start, "invalid_ignored")
				next.ServeHTTP(w, r)
				return
			}

			outcome := "invalid"
			if errors.Is(err, core.ErrJWTMissing) {
				outcome = "missing"
			} else {
				err = &invalidError{details: err}
			}
			if m.logger != nil {
				m.logger.Warn("token validation failed",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)
			}
			m.observeCheck(span, start, outcome)
			m.errorHandler(w, r, err)
			return
		}

		// Credentials are optional and no token was provided, so continue
		// without setting claims.
		if validToken == nil {
			m.observeCheck(span, start, "anonymous")
			next.ServeHTTP(w, r)
			return
		}

		m.observeCheck(span, start, "ok")
		r = r.Clone(core.SetClaims(r.Context(), validToken))
		next.ServeHTTP(w, r)
	})
}

func (m *JWTMiddleware) observeCheck(span Span, start time.Time, outcome string) {
	tags := map[string]string{"outcome": outcome}
	m.metrics.IncCounter(metricChecksTotal, tags)
	m.metrics.ObserveHistogram(metricCheckDurationSeconds, time.Since(start).Seconds(), tags)
	span.SetTag("outcome", outcome)
}
