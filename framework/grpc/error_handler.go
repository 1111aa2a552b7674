package grpccfaccess

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/edgeguard/go-cfaccess/core"
	"github.com/edgeguard/go-cfaccess/jwks"
	"github.com/edgeguard/go-cfaccess/validator"
)

// ErrorHandler converts check failures to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps check failures to gRPC status codes. Token faults
// come back as Unauthenticated and server-side faults as Internal, with
// generic messages in both cases so verification detail never reaches the
// caller. Extraction faults are the caller's mistake and come back as
// InvalidArgument.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, core.ErrJWTMissing) {
		return status.Error(codes.Unauthenticated, "no Cloudflare Access token provided")
	}

	if errors.Is(err, ErrMultipleTokens) ||
		errors.Is(err, ErrInvalidAuthFormat) ||
		errors.Is(err, ErrUnsupportedScheme) {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	// A key set we could not fetch or a missing verifier configuration is
	// our problem, not the caller's.
	var keyFetchErr *jwks.KeyFetchError
	var configErr *validator.ConfigError
	if errors.As(err, &keyFetchErr) || errors.As(err, &configErr) {
		return status.Error(codes.Internal, "unable to verify token")
	}

	return status.Error(codes.Unauthenticated, "invalid Cloudflare Access token")
}
