package cfaccess

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/edgeguard/go-cfaccess/core"
)

var (
	// ErrJWTMissing is returned when no token was found on the request.
	ErrJWTMissing = core.ErrJWTMissing

	// ErrJWTInvalid is returned when the token failed verification.
	ErrJWTInvalid = core.ErrJWTInvalid
)

// ErrorHandler is a handler which is called when an error occurs in the
// JWTMiddleware. Among some general errors, this handler also determines
// the response of the JWTMiddleware when a token is not found or is
// invalid. The err can be checked to be ErrJWTMissing or ErrJWTInvalid for
// specific cases. If you implement your own ErrorHandler you MUST take
// into consideration the error types as not properly responding to them
// could result in the JWTMiddleware not functioning as intended.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler is the default error handler implementation for the
// JWTMiddleware. If an error handler is not provided via the
// WithErrorHandler option this will be used.
//
// Missing and invalid tokens both answer 401 with a fixed JSON body; why
// a token was rejected stays in logs and metrics, never in the response.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case errors.Is(err, ErrJWTMissing):
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"No Cloudflare Access token provided"}`))
	case errors.Is(err, ErrJWTInvalid):
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"Invalid Cloudflare Access token"}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error","message":"Something went wrong while checking the Access token"}`))
	}
}

// invalidError handles wrapping a token validation error with
// the concrete error ErrJWTInvalid. We do not expose this
// publicly because the interface methods of Is and Unwrap
// should give the user all they need.
type invalidError struct {
	details error
}

// Is allows the error to support equality to ErrJWTInvalid.
func (e *invalidError) Is(target error) bool {
	return target == ErrJWTInvalid
}

// Error returns a string representation of the error.
func (e *invalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrJWTInvalid, e.details)
}

// Unwrap allows the error to support equality to the
// underlying error and not just ErrJWTInvalid.
func (e *invalidError) Unwrap() error {
	return e.details
}
