/*
Package validator verifies Cloudflare Access application tokens.

When an application sits behind Cloudflare Access, every request that made
it through Access carries a JWT in the Cf-Access-Jwt-Assertion header. The
application must verify that token itself; trusting the header's presence
alone lets anyone who can reach the origin directly impersonate Access.
This package performs that verification: it checks the token's signature
against the team's published signing keys and validates its claims against
the configured team domain and application audience tag.

# Basic Usage

	provider, err := jwks.NewCachingProvider(
	    jwks.WithTeamDomain("myteam.cloudflareaccess.com"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.Config{
	        TeamDomain:  "myteam.cloudflareaccess.com",
	        AudienceTag: "e5f7a2...",
	    },
	    provider,
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.ValidateToken(ctx, token)
	if err != nil {
	    // Reject the request.
	}
	validated := claims.(*validator.ValidatedClaims)

Config values usually come from the environment:

	v, err := validator.New(validator.ConfigFromEnv(), provider)

# Error Types

Each stage of verification fails with its own type, so callers that need
to distinguish a stale key set from a bad signature can:

  - *ConfigError: required configuration missing; checked first on every
    call, before any network activity
  - *MalformedTokenError: the token is not parseable as a JWT
  - *jwks.KeyFetchError: the key set could not be retrieved
  - *UnknownKeyError: no key in the set matches the token's key id
  - *SignatureError: the signature did not verify, or the algorithm is
    not the configured one
  - *ClaimsError: a claim was rejected; Claim names which one

Boundary code should treat every one of these as an authentication
failure and answer with a generic 401. The distinctions exist for logs
and metrics, not for response bodies.

# Custom Claims

Applications that act on claims beyond the registered set and email can
have them deserialized and validated in the same pass:

	type AppClaims struct {
	    Country string `json:"country"`
	}

	func (c *AppClaims) Validate(ctx context.Context) error {
	    if c.Country == "" {
	        return errors.New("country claim is required")
	    }
	    return nil
	}

	v, err := validator.New(cfg, provider,
	    validator.WithCustomClaims(func() validator.CustomClaims {
	        return &AppClaims{}
	    }),
	)
*/
package validator
