package grpccfaccess

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/metadata"
)

// AssertionMetadataKey is the incoming metadata key carrying the Access
// token. gRPC normalizes metadata keys to lowercase, so this is the
// lowercase form of the Cf-Access-Jwt-Assertion header cloudflared forwards.
const AssertionMetadataKey = "cf-access-jwt-assertion"

// TokenExtractor pulls a raw token out of the incoming call context. An
// empty string with a nil error means no token was provided, which is not an
// error on its own.
type TokenExtractor func(ctx context.Context) (string, error)

var (
	// ErrMultipleTokens indicates multiple token metadata entries were provided.
	ErrMultipleTokens = errors.New("multiple token metadata entries are not allowed")

	// ErrInvalidAuthFormat indicates the authorization metadata format is invalid.
	ErrInvalidAuthFormat = errors.New("invalid authorization metadata format, expected: Bearer <token>")

	// ErrUnsupportedScheme indicates an unsupported authorization scheme was used.
	ErrUnsupportedScheme = errors.New("unsupported authorization scheme, expected: Bearer")
)

// AssertionMetadataExtractor reads the Access token from the
// cf-access-jwt-assertion metadata key. This is the default extractor.
func AssertionMetadataExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get(AssertionMetadataKey)
	if len(values) == 0 {
		return "", nil
	}
	if len(values) > 1 {
		return "", ErrMultipleTokens
	}

	return values[0], nil
}

// AuthorizationMetadataExtractor reads a "Bearer <token>" value from the
// authorization metadata key, for clients that send the token the
// conventional gRPC way instead of the Access assertion key.
func AuthorizationMetadataExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return "", nil
	}
	if len(values) > 1 {
		return "", ErrMultipleTokens
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 {
		return "", ErrInvalidAuthFormat
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", ErrUnsupportedScheme
	}

	return parts[1], nil
}

// MultiExtractor tries each extractor in order and returns the first token
// or error encountered.
func MultiExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		for _, extractor := range extractors {
			token, err := extractor(ctx)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}

		return "", nil
	}
}
