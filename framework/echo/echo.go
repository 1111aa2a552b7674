// Package echocfaccess provides an Echo middleware that verifies Cloudflare
// Access tokens using the root cfaccess middleware.
package echocfaccess

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	cfaccess "github.com/edgeguard/go-cfaccess"
	"github.com/edgeguard/go-cfaccess/validator"
)

// DefaultClaimsKey is the Echo context key claims are stored under unless
// WithContextKey overrides it.
const DefaultClaimsKey = "cfaccess"

var (
	ErrMissingClaims = errors.New("no Access claims found in context")
	ErrInvalidClaims = errors.New("invalid Access claims type")
)

// ErrorHandler renders a failed check. Its return value is handed back to
// Echo as the handler error.
type ErrorHandler func(c echo.Context, err error) error

type middlewareConfig struct {
	errorHandler   ErrorHandler
	contextKey     string
	middlewareOpts []cfaccess.Option
}

// errorContextKey marks the per-request slot the wrapped middleware's error
// handler writes into, so the response can be rendered through the Echo
// context instead of a bare http.ResponseWriter.
type errorContextKey struct{}

// New constructs an Echo middleware around cfaccess.JWTMiddleware. The
// validator v is typically a *validator.Validator; it must be safe for
// concurrent use.
//
// On success the validated claims are stored in the Echo context under
// DefaultClaimsKey (see WithContextKey) and in the request context, so both
// GetClaims variants work inside handlers.
func New(v cfaccess.TokenValidator, opts ...Option) (echo.MiddlewareFunc, error) {
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
	// Custom rendering belongs to the Echo-level WithErrorHandler.
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

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var checkErr error
			ctx := context.WithValue(c.Request().Context(), errorContextKey{}, &checkErr)
			c.SetRequest(c.Request().WithContext(ctx))

			var nextErr error
			encounteredError := true
			var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
				encounteredError = false
				c.SetRequest(r)

				if claims, err := cfaccess.GetClaims[*validator.ValidatedClaims](r.Context()); err == nil {
					c.Set(config.contextKey, claims)
				}

				nextErr = next(c)
			}

			middleware.CheckJWT(handler).ServeHTTP(c.Response(), c.Request())

			if encounteredError {
				if checkErr == nil {
					checkErr = cfaccess.ErrJWTInvalid
				}
				return config.errorHandler(c, checkErr)
			}

			return nextErr
		}
	}, nil
}

// DefaultErrorHandler responds with the same generic JSON bodies the root
// middleware writes. Verification detail is never sent to the client.
func DefaultErrorHandler(c echo.Context, err error) error {
	switch {
	case errors.Is(err, cfaccess.ErrJWTMissing):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "Unauthorized",
			"message": "No Cloudflare Access token provided",
		})
	case errors.Is(err, cfaccess.ErrJWTInvalid):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error":   "Unauthorized",
			"message": "Invalid Cloudflare Access token",
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   "Internal Server Error",
			"message": "Something went wrong while checking the Access token",
		})
	}
}

// GetClaims reads the validated claims stored by the middleware. An empty
// contextKey falls back to DefaultClaimsKey.
func GetClaims(c echo.Context, contextKey string) (*validator.ValidatedClaims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}

	claims := c.Get(contextKey)
	if claims == nil {
		return nil, ErrMissingClaims
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}

	return validatedClaims, nil
}
