package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Signature algorithms
const (
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
}

// DefaultClockSkew is the tolerance applied to the time-based claims when
// no WithAllowedClockSkew option is given.
const DefaultClockSkew = 30 * time.Second

// emailClaim is the claim Access embeds the identity email under.
const emailClaim = "email"

// KeyProvider supplies the key set tokens are verified against. Both
// jwks.Provider and jwks.CachingProvider satisfy it.
type KeyProvider interface {
	GetKeys(ctx context.Context) (jwk.Set, error)
}

// Clock supplies the validation time. Tests inject one to pin down the
// exp and iat checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Validator verifies Cloudflare Access application tokens for a single
// Access application.
type Validator struct {
	config           Config
	keys             KeyProvider        // Required.
	algorithm        SignatureAlgorithm // Defaults to RS256.
	allowedClockSkew time.Duration      // Defaults to DefaultClockSkew.
	clock            Clock              // Defaults to the wall clock.
	customClaims     func() CustomClaims
}

// New sets up a new Validator for one Access application, identified by
// config, verifying signatures against the keys supplied by keys.
//
// The config is deliberately accepted as is: completeness is checked by
// every ValidateToken call rather than here, so construction cannot fail
// on missing environment variables.
func New(config Config, keys KeyProvider, opts ...Option) (*Validator, error) {
	if keys == nil {
		return nil, errors.New("key provider is required but was nil")
	}

	v := &Validator{
		config:           config,
		keys:             keys,
		algorithm:        RS256,
		allowedClockSkew: DefaultClockSkew,
		clock:            systemClock{},
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// ValidateToken verifies a single Access token end to end and returns the
// decoded claims as a *ValidatedClaims.
//
// The checks run in a fixed order, each with its own error type:
// configuration completeness (*ConfigError), token structure
// (*MalformedTokenError), key set retrieval (*jwks.KeyFetchError), key id
// lookup (*UnknownKeyError), signature (*SignatureError), and finally the
// claims (*ClaimsError).
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (any, error) {
	if err := v.config.Validate(); err != nil {
		return nil, err
	}

	message, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, &MalformedTokenError{Err: err}
	}

	keyID, tokenAlg, err := signatureHeader(message)
	if err != nil {
		return nil, &MalformedTokenError{Err: err}
	}

	set, err := v.keys.GetKeys(ctx)
	if err != nil {
		return nil, err
	}

	key, found := set.LookupKeyID(keyID)
	if !found {
		return nil, &UnknownKeyError{KeyID: keyID}
	}

	if tokenAlg != jwa.SignatureAlgorithm(v.algorithm) {
		return nil, &SignatureError{
			Err: fmt.Errorf("expected %q signing algorithm but token specified %q", v.algorithm, tokenAlg),
		}
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKey(tokenAlg, key))
	if err != nil {
		return nil, &SignatureError{Err: err}
	}

	if err := v.validateClaims(token); err != nil {
		return nil, err
	}

	return v.newValidatedClaims(ctx, message.Payload(), token)
}

// signatureHeader extracts the key id and declared algorithm from the
// protected header without verifying anything.
func signatureHeader(message *jws.Message) (string, jwa.SignatureAlgorithm, error) {
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", "", errors.New("token has no signature")
	}

	headers := signatures[0].ProtectedHeaders()

	keyID := headers.KeyID()
	if keyID == "" {
		return "", "", errors.New(`token header is missing the "kid" field`)
	}

	return keyID, headers.Algorithm(), nil
}

func (v *Validator) validateClaims(token jwt.Token) error {
	if _, ok := token.Get(jwt.ExpirationKey); !ok {
		return &ClaimsError{Claim: jwt.ExpirationKey, Err: errors.New("token has no expiration")}
	}

	now := v.clock.Now()
	if issuedAt := token.IssuedAt(); !issuedAt.IsZero() && issuedAt.After(now.Add(v.allowedClockSkew)) {
		return &ClaimsError{
			Claim: jwt.IssuedAtKey,
			Err:   fmt.Errorf("token issued in the future at %s", issuedAt.UTC().Format(time.RFC3339)),
		}
	}

	err := jwt.Validate(token,
		jwt.WithClock(v.clock),
		jwt.WithAcceptableSkew(v.allowedClockSkew),
		jwt.WithIssuer(v.config.IssuerURL()),
		jwt.WithAudience(v.config.AudienceTag),
	)
	if err == nil {
		return nil
	}

	return classifyClaimsError(err)
}

// classifyClaimsError maps a jwt.Validate failure to a ClaimsError naming
// the claim that was rejected.
func classifyClaimsError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrInvalidAudience()):
		return &ClaimsError{Claim: jwt.AudienceKey, Err: err}
	case errors.Is(err, jwt.ErrInvalidIssuer()):
		return &ClaimsError{Claim: jwt.IssuerKey, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired()):
		return &ClaimsError{Claim: jwt.ExpirationKey, Err: err}
	case errors.Is(err, jwt.ErrTokenNotYetValid()):
		return &ClaimsError{Claim: jwt.NotBeforeKey, Err: err}
	}

	// jwt.Validate renders unclassified failures as `"<claim>" not
	// satisfied`, so fall back to the message.
	message := err.Error()
	switch {
	case strings.Contains(message, `"iat"`):
		return &ClaimsError{Claim: jwt.IssuedAtKey, Err: err}
	case strings.Contains(message, `"exp"`):
		return &ClaimsError{Claim: jwt.ExpirationKey, Err: err}
	}

	return &ClaimsError{Err: err}
}

func (v *Validator) newValidatedClaims(ctx context.Context, payload []byte, token jwt.Token) (*ValidatedClaims, error) {
	claims := &ValidatedClaims{
		RegisteredClaims: RegisteredClaims{
			Issuer:   token.Issuer(),
			Subject:  token.Subject(),
			Audience: token.Audience(),
			ID:       token.JwtID(),
		},
	}

	if expiry := token.Expiration(); !expiry.IsZero() {
		claims.RegisteredClaims.Expiry = expiry.Unix()
	}
	if notBefore := token.NotBefore(); !notBefore.IsZero() {
		claims.RegisteredClaims.NotBefore = notBefore.Unix()
	}
	if issuedAt := token.IssuedAt(); !issuedAt.IsZero() {
		claims.RegisteredClaims.IssuedAt = issuedAt.Unix()
	}

	if email, ok := token.Get(emailClaim); ok {
		if value, ok := email.(string); ok {
			claims.Email = value
		}
	}

	if err := json.Unmarshal(payload, &claims.RawClaims); err != nil {
		return nil, &MalformedTokenError{Err: fmt.Errorf("decoding claims: %w", err)}
	}

	if v.customClaims != nil {
		if custom := v.customClaims(); custom != nil {
			if err := json.Unmarshal(payload, custom); err != nil {
				return nil, &MalformedTokenError{Err: fmt.Errorf("decoding custom claims: %w", err)}
			}
			if err := custom.Validate(ctx); err != nil {
				return nil, &ClaimsError{Claim: "custom", Err: err}
			}
			claims.CustomClaims = custom
		}
	}

	return claims, nil
}
