package grpccfaccess

import (
	"context"

	"github.com/edgeguard/go-cfaccess/core"
)

// GetClaims retrieves claims of type T from the handler context.
//
// Example:
//
//	claims, err := grpccfaccess.GetClaims[*validator.ValidatedClaims](ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get claims")
//	}
func GetClaims[T any](ctx context.Context) (T, error) {
	return core.GetClaims[T](ctx)
}

// MustGetClaims retrieves claims of type T from the handler context or
// panics. Use only after the interceptor has run with required credentials.
func MustGetClaims[T any](ctx context.Context) T {
	claims, err := core.GetClaims[T](ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims reports whether the context carries validated claims. With
// optional credentials this is how handlers tell authenticated calls from
// anonymous ones.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}
