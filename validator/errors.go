package validator

import (
	"fmt"
	"strings"
)

// ConfigError reports required configuration that was missing when
// ValidateToken was called. Missing holds the Config field names, so a
// process started without CF_TEAM_DOMAIN set fails with a ConfigError
// naming TeamDomain. No network activity happens before this check.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required configuration: " + strings.Join(e.Missing, ", ")
}

// MalformedTokenError reports a token that could not be parsed far enough
// to verify: not compact JWT serialization, undecodable segments, or a
// header without a key id.
type MalformedTokenError struct {
	Err error
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed token: %v", e.Err)
}

func (e *MalformedTokenError) Unwrap() error {
	return e.Err
}

// UnknownKeyError reports a token whose key id matched nothing in the
// current key set. This happens when Access has rotated its signing keys
// and the cached set predates the rotation, or when the token was issued
// by a different team.
type UnknownKeyError struct {
	KeyID string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("no key with id %q in the current key set", e.KeyID)
}

// SignatureError reports a token whose signature did not verify against
// the matched key, or one signed with an algorithm other than the
// configured one.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature verification failed: %v", e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// ClaimsError reports a token whose signature verified but whose claims
// did not pass validation. Claim names the offending claim ("aud", "iss",
// "exp", "iat", "nbf", or "custom" for WithCustomClaims failures).
type ClaimsError struct {
	Claim string
	Err   error
}

func (e *ClaimsError) Error() string {
	if e.Claim == "" {
		return fmt.Sprintf("claims validation failed: %v", e.Err)
	}
	return fmt.Sprintf("%q claim rejected: %v", e.Claim, e.Err)
}

func (e *ClaimsError) Unwrap() error {
	return e.Err
}
