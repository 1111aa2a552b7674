// Command cfaccess-check verifies a single Cloudflare Access token from the
// command line.
//
// Without a token it reports the current configuration:
//
//	cfaccess-check
//
// With a token (as an argument, or "-" to read stdin) it runs one
// verification against the team's key set and prints the identity:
//
//	cfaccess-check <token>
//	cloudflared access token -app=https://app.example.com | cfaccess-check -
//
// Configuration comes from CF_TEAM_DOMAIN and CF_AUD_TAG, a .env file in
// the working directory, or the -team-domain and -aud flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/edgeguard/go-cfaccess/jwks"
	"github.com/edgeguard/go-cfaccess/validator"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("could not load .env: %v", err)
	}

	teamDomain := flag.String("team-domain", os.Getenv(validator.EnvTeamDomain),
		"Access team domain, e.g. myteam.cloudflareaccess.com (env CF_TEAM_DOMAIN)")
	audienceTag := flag.String("aud", os.Getenv(validator.EnvAudienceTag),
		"Application audience tag (env CF_AUD_TAG)")
	tokenFlag := flag.String("token", "", `token to verify; "-" reads stdin`)
	timeout := flag.Duration("timeout", 15*time.Second, "verification timeout")
	flag.Parse()

	config := validator.Config{
		TeamDomain:  *teamDomain,
		AudienceTag: *audienceTag,
	}

	token := *tokenFlag
	if token == "" && flag.NArg() > 0 {
		token = flag.Arg(0)
	}

	if token == "" {
		os.Exit(printConfigStatus(config))
	}

	if token == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("could not read token from stdin: %v", err)
		}
		token = strings.TrimSpace(string(raw))
	}

	if err := config.Validate(); err != nil {
		log.Fatalf("cannot verify: %v (run without arguments to see the configuration status)", err)
	}

	keys, err := jwks.NewCachingProvider(jwks.WithTeamDomain(config.TeamDomain))
	if err != nil {
		log.Fatalf("create key provider: %v", err)
	}

	v, err := validator.New(config, keys)
	if err != nil {
		log.Fatalf("create validator: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := v.ValidateToken(ctx, token)
	if err != nil {
		log.Fatalf("%s failure: %v", failureKind(err), err)
	}

	claims, ok := result.(*validator.ValidatedClaims)
	if !ok {
		log.Fatalf("unexpected claims type %T", result)
	}

	printClaims(claims)
}

// printConfigStatus reports the current configuration the way the
// verification would see it and returns the process exit code.
func printConfigStatus(config validator.Config) int {
	fmt.Println("Cloudflare Access token verifier")
	fmt.Println("================================")
	fmt.Println()
	fmt.Println("Required environment variables:")
	fmt.Println("  CF_TEAM_DOMAIN - your Cloudflare team domain (e.g. mycompany.cloudflareaccess.com)")
	fmt.Println("  CF_AUD_TAG     - your application audience tag (from the Access app configuration)")
	fmt.Println()

	if err := config.Validate(); err != nil {
		fmt.Println("Configuration status:")
		fmt.Printf("  CF_TEAM_DOMAIN: %s\n", setOrMissing(config.TeamDomain))
		fmt.Printf("  CF_AUD_TAG: %s\n", setOrMissing(config.AudienceTag))
		fmt.Println()
		fmt.Println("WARNING: environment variables not configured.")
		fmt.Println("Set them before verifying tokens.")
		return 1
	}

	fmt.Println("Current configuration:")
	fmt.Printf("  Team Domain: %s\n", config.TeamDomain)
	fmt.Printf("  AUD Tag: %s\n", config.AudienceTag)
	fmt.Printf("  Issuer: %s\n", config.IssuerURL())
	fmt.Printf("  Certs URL: %s\n", config.CertsURL())
	fmt.Println()
	fmt.Println("Configuration OK - ready to verify tokens.")
	return 0
}

func setOrMissing(value string) string {
	if value == "" {
		return "NOT SET (required)"
	}
	return "SET"
}

func printClaims(claims *validator.ValidatedClaims) {
	fmt.Println("== Cloudflare Access Token Verified ==")
	fmt.Printf("subject      : %s\n", claims.RegisteredClaims.Subject)
	fmt.Printf("email        : %s\n", claims.Email)
	fmt.Printf("issuer       : %s\n", claims.RegisteredClaims.Issuer)
	fmt.Printf("audience     : %s\n", strings.Join(claims.RegisteredClaims.Audience, ", "))
	if claims.RegisteredClaims.IssuedAt > 0 {
		fmt.Printf("issued_at    : %s\n", time.Unix(claims.RegisteredClaims.IssuedAt, 0).UTC().Format(time.RFC3339))
	}
	if claims.RegisteredClaims.Expiry > 0 {
		fmt.Printf("expires_at   : %s\n", time.Unix(claims.RegisteredClaims.Expiry, 0).UTC().Format(time.RFC3339))
	}
}

// failureKind names the stage of the verification pipeline that rejected
// the token.
func failureKind(err error) string {
	var (
		configErr    *validator.ConfigError
		keyFetchErr  *jwks.KeyFetchError
		malformedErr *validator.MalformedTokenError
		unknownKey   *validator.UnknownKeyError
		signatureErr *validator.SignatureError
		claimsErr    *validator.ClaimsError
	)

	switch {
	case errors.As(err, &configErr):
		return "configuration"
	case errors.As(err, &keyFetchErr):
		return "key fetch"
	case errors.As(err, &malformedErr):
		return "malformed token"
	case errors.As(err, &unknownKey):
		return "unknown signing key"
	case errors.As(err, &signatureErr):
		return "signature"
	case errors.As(err, &claimsErr):
		return "claims"
	default:
		return "verification"
	}
}
