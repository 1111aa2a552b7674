package core

import "errors"

// Sentinel errors shared by the engine and its adapters.
var (
	// ErrJWTMissing is returned when no token was presented with the request.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid is returned when a presented token failed verification.
	// Specific verification failures (bad signature, unknown key, claim
	// mismatches) wrap this sentinel so adapters can match broadly.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)
