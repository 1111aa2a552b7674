// Package gincfaccess provides a Gin middleware that verifies Cloudflare
// Access tokens using the root cfaccess middleware.
package gincfaccess

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cfaccess "github.com/edgeguard/go-cfaccess"
	"github.com/edgeguard/go-cfaccess/validator"
)

// DefaultClaimsKey is the Gin context key claims are stored under unless
// WithContextKey overrides it.
const DefaultClaimsKey = "cfaccess"

var (
	ErrMissingClaims = errors.New("no Access claims found in context")
	ErrInvalidClaims = errors.New("invalid Access claims type")
)

// ErrorHandler renders a failed check. It runs after the middleware has
// decided the request must not proceed; the caller aborts the chain.
type ErrorHandler func(c *gin.Context, err error)

type middlewareConfig struct {
	errorHandler   ErrorHandler
	contextKey     string
	middlewareOpts []cfaccess.Option
}

// errorContextKey marks the per-request slot the wrapped middleware's error
// handler writes into, so the response can be rendered with Gin idioms
// instead of a bare http.ResponseWriter.
type errorContextKey struct{}

// New constructs a Gin middleware around cfaccess.JWTMiddleware. The
// validator v is typically a *validator.Validator; it must be safe for
// concurrent use.
//
// On success the validated claims are stored in the Gin context under
// DefaultClaimsKey (see WithContextKey) and in the request context, so both
// GetClaims variants work inside handlers.
func New(v cfaccess.TokenValidator, opts ...Option) (gin.HandlerFunc, error) {
	config := &middlewareConfig{
		errorHandler: DefaultErrorHandler,
		contextKey:   DefaultClaimsKey,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	middlewareOpts := append([]cfaccess.Option{cfaccess.WithValidator(v)}, config.middlewareOpts...)

	// The error handler must divert into the per-request slot, so it is
	// installed last and cannot be overridden through WithMiddlewareOptions.
	// Custom rendering belongs to the Gin-level WithErrorHandler.
	middlewareOpts = append(middlewareOpts, cfaccess.WithErrorHandler(
		func(w http.ResponseWriter, r *http.Request, err error) {
			if slot, ok := r.Context().Value(errorContextKey{}).(*error); ok {
				*slot = err
				return
			}
			cfaccess.DefaultErrorHandler(w, r, err)
		},
	))

	middleware, err := cfaccess.New(middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		var checkErr error
		ctx := context.WithValue(c.Request.Context(), errorContextKey{}, &checkErr)
		c.Request = c.Request.WithContext(ctx)

		encounteredError := true
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			encounteredError = false
			c.Request = r

			if claims, err := cfaccess.GetClaims[*validator.ValidatedClaims](r.Context()); err == nil {
				c.Set(config.contextKey, claims)
			}

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		if encounteredError {
			if checkErr == nil {
				checkErr = cfaccess.ErrJWTInvalid
			}
			config.errorHandler(c, checkErr)
			c.Abort()
		}
	}, nil
}

// DefaultErrorHandler aborts with the same generic JSON bodies the root
// middleware writes. Verification detail is never sent to the client.
func DefaultErrorHandler(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cfaccess.ErrJWTMissing):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "No Cloudflare Access token provided",
		})
	case errors.Is(err, cfaccess.ErrJWTInvalid):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "Invalid Cloudflare Access token",
		})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Something went wrong while checking the Access token",
		})
	}
}

// GetClaims reads the validated claims stored by the middleware. An empty
// contextKey falls back to DefaultClaimsKey.
func GetClaims(c *gin.Context, contextKey string) (*validator.ValidatedClaims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}

	claims, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return validatedClaims, nil
}
