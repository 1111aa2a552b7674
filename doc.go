/*
Package cfaccess provides HTTP middleware that verifies Cloudflare Access
application tokens.

Cloudflare Access forwards a signed JWT with every request that passed its
checks. This package validates that token against the team's published
signing keys, confirms it was issued for your application, and makes the
claims available in the request context. The middleware is the HTTP
adapter on top of a framework-agnostic core; gin, echo, and gRPC adapters
live under framework/.

# Quick Start

	import (
	    cfaccess "github.com/edgeguard/go-cfaccess"
	    "github.com/edgeguard/go-cfaccess/jwks"
	    "github.com/edgeguard/go-cfaccess/validator"
	)

	func main() {
	    config := validator.Config{
	        TeamDomain:  "myteam.cloudflareaccess.com",
	        AudienceTag: "your application AUD tag",
	    }

	    keys, err := jwks.NewCachingProvider(
	        jwks.WithTeamDomain(config.TeamDomain),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    accessValidator, err := validator.New(config, keys)
	    if err != nil {
	        log.Fatal(err)
	    }

	    middleware, err := cfaccess.New(
	        cfaccess.WithValidator(accessValidator),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.Handle("/api/", middleware.CheckJWT(apiHandler))
	    http.ListenAndServe(":8080", nil)
	}

Both configuration values come from the Cloudflare Zero Trust dashboard:
the team domain from Settings, the AUD tag from the Access application's
overview page. validator.ConfigFromEnv reads them from CF_TEAM_DOMAIN and
CF_AUD_TAG instead.

# Accessing Claims

Use the type-safe generic helpers to access claims in your handlers:

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    claims, err := cfaccess.GetClaims[*validator.ValidatedClaims](r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }

	    fmt.Fprintf(w, "Hello, %s!", claims.Email)
	}

ValidatedClaims carries the registered claims, the identity email Access
embeds for user logins (empty for service tokens), and RawClaims with the
complete decoded payload for anything without a dedicated field.

To check for claims without retrieving them:

	if cfaccess.HasClaims(r.Context()) {
	    // The request carried a valid token.
	}

# Configuration Options

All configuration is done through functional options.

Required:
  - WithValidator: a configured validator instance

Optional:
  - WithCredentialsOptional: let requests without a token through
  - WithValidateOnOptions: validate tokens on OPTIONS requests
  - WithErrorHandler: custom error response handler
  - WithTokenExtractor: custom token extraction logic
  - WithExclusionUrls / WithExclusionUrlHandler: paths to skip entirely
  - WithLogger: structured logging
  - WithMetrics: check counters and duration histograms
  - WithTracer: a span per token check

# Optional Credentials

With WithCredentialsOptional(true) requests without a token reach the
handler with no claims in the context, which suits endpoints that serve
both public and authenticated content:

	middleware, err := cfaccess.New(
	    cfaccess.WithValidator(accessValidator),
	    cfaccess.WithCredentialsOptional(true),
	)

	func handler(w http.ResponseWriter, r *http.Request) {
	    claims, err := cfaccess.GetClaims[*validator.ValidatedClaims](r.Context())
	    if err != nil {
	        fmt.Fprintln(w, "Public content")
	        return
	    }
	    fmt.Fprintf(w, "Hello, %s!", claims.Email)
	}

A token that is present but invalid is still rejected.

# Token Extraction

By default the token is read from the Cf-Access-Jwt-Assertion header,
which Access adds to every proxied request. Browser sessions also carry
the token in the CF_Authorization cookie; accept both with:

	extractor := cfaccess.MultiTokenExtractor(
	    cfaccess.AssertionHeaderTokenExtractor,
	    cfaccess.CookieTokenExtractor(cfaccess.AuthorizationCookie),
	)

	middleware, err := cfaccess.New(
	    cfaccess.WithValidator(accessValidator),
	    cfaccess.WithTokenExtractor(extractor),
	)

ParameterTokenExtractor reads from a query string parameter instead.

# URL Exclusions

Skip token checks for specific paths:

	middleware, err := cfaccess.New(
	    cfaccess.WithValidator(accessValidator),
	    cfaccess.WithExclusionUrls([]string{"/health", "/metrics"}),
	)

WithExclusionUrlHandler takes a predicate for anything path matching
cannot express.

# Custom Error Handling

The handler receives every check failure and writes the response. The
err can be checked against ErrJWTMissing and ErrJWTInvalid; the typed
errors of the validator and jwks packages are reachable with errors.As:

	func myErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	    if errors.Is(err, cfaccess.ErrJWTMissing) {
	        http.Error(w, "No Access token", http.StatusUnauthorized)
	        return
	    }

	    var claimsErr *validator.ClaimsError
	    if errors.As(err, &claimsErr) && claimsErr.Claim == "exp" {
	        http.Error(w, "Session expired, log in again", http.StatusUnauthorized)
	        return
	    }

	    http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}

	middleware, err := cfaccess.New(
	    cfaccess.WithValidator(accessValidator),
	    cfaccess.WithErrorHandler(myErrorHandler),
	)

# Error Responses

The DefaultErrorHandler answers with a fixed JSON body and never echoes
why a token was rejected; the detail stays in logs and metrics.

401 Unauthorized, no token on the request:

	{"error":"Unauthorized","message":"No Cloudflare Access token provided"}

401 Unauthorized, token failed verification:

	{"error":"Unauthorized","message":"Invalid Cloudflare Access token"}

500 Internal Server Error, the keys could not be fetched or the verifier
is misconfigured:

	{"error":"Internal Server Error","message":"Something went wrong while checking the Access token"}

# Custom Claims

Tokens can carry application-specific claims. Define a type, register a
factory, and the validator unmarshals and validates it per token:

	type GroupClaims struct {
	    Groups []string `json:"groups"`
	}

	func (c *GroupClaims) Validate(ctx context.Context) error {
	    if len(c.Groups) == 0 {
	        return errors.New("no groups in token")
	    }
	    return nil
	}

	accessValidator, err := validator.New(config, keys,
	    validator.WithCustomClaims(func() validator.CustomClaims {
	        return &GroupClaims{}
	    }),
	)

In handlers the value is reachable through claims.CustomClaims:

	claims, _ := cfaccess.GetClaims[*validator.ValidatedClaims](r.Context())
	groups := claims.CustomClaims.(*GroupClaims).Groups

# Observability

WithLogger accepts anything implementing the small Logger interface;
*slog.Logger satisfies it directly, and NewZapLogger, NewZerologLogger,
and NewLogrusLogger adapt the usual suspects. WithMetrics records a
counter and a duration histogram per check (NewPrometheusMetrics), and
WithTracer opens a span per check (NewOpenTelemetryTracer).

# Framework Adapters

The framework/gin, framework/echo, and framework/grpc packages wrap the
same validator for their ecosystems:

	checkAccess, err := gincfaccess.New(accessValidator)
	if err != nil {
	    log.Fatal(err)
	}
	router.Use(checkAccess)

Each adapter speaks its framework's idiom for aborting requests and
storing claims; see their package documentation.

# Thread Safety

The JWTMiddleware instance is immutable after creation and safe for
concurrent use. The same middleware can be used across multiple routes
and handle concurrent requests.
*/
package cfaccess
