/*
Package jwks fetches and caches the public signing keys of a Cloudflare
Access team.

Access publishes the keys it signs application tokens with at
https://<team-domain>/cdn-cgi/access/certs. This package retrieves that key
set and hands it to the validator package for signature checks.

# Choosing the Right Provider

Provider: fetches the key set on every call
  - No caching, no shared state
  - Use for: testing, one-shot tools

CachingProvider: serves the key set from memory
  - Refetches only when the cached copy is older than the freshness
    window (default: 24 hours)
  - Staleness is checked on access; nothing runs in the background
  - Use for: servers

# Basic Usage

	import (
	    "github.com/edgeguard/go-cfaccess/jwks"
	    "github.com/edgeguard/go-cfaccess/validator"
	)

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

# Error Handling

A fetch that fails for any reason surfaces as a *KeyFetchError. When the
endpoint answered with a non-200 status the error carries the status code
and a truncated copy of the response body; otherwise it wraps the transport
or parse error:

	var fetchErr *jwks.KeyFetchError
	if errors.As(err, &fetchErr) {
	    if fetchErr.StatusCode != 0 {
	        log.Printf("certs endpoint returned %d: %s", fetchErr.StatusCode, fetchErr.Body)
	    } else {
	        log.Printf("certs fetch failed: %v", fetchErr.Err)
	    }
	}

A failed refetch is never papered over with the previous key set; the error
is returned to the caller and the next access tries again.
*/
package jwks
