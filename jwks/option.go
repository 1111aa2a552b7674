package jwks

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/edgeguard/go-cfaccess/internal/teamdomain"
)

// ProviderOption configures a Provider. The same options are accepted by
// NewCachingProvider.
type ProviderOption func(*Provider) error

// WithTeamDomain points the provider at the certs endpoint of the given
// Access team domain. A scheme prefix and trailing slash are tolerated, so
// "myteam.cloudflareaccess.com" and "https://myteam.cloudflareaccess.com/"
// configure the same endpoint.
func WithTeamDomain(domain string) ProviderOption {
	return func(p *Provider) error {
		if teamdomain.Normalize(domain) == "" {
			return errors.New("team domain cannot be empty")
		}
		p.certsURL = teamdomain.CertsURL(domain)
		return nil
	}
}

// WithCertsURL overrides the key set URL derived from the team domain.
// Useful for tests and for deployments that front the certs endpoint with
// something else.
func WithCertsURL(rawURL string) ProviderOption {
	return func(p *Provider) error {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return err
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return errors.New("certs URL must be absolute")
		}
		p.certsURL = rawURL
		return nil
	}
}

// WithCustomClient sets the HTTP client used to fetch the key set. The
// default client times out after DefaultFetchTimeout.
func WithCustomClient(client *http.Client) ProviderOption {
	return func(p *Provider) error {
		if client == nil {
			return errors.New("http client cannot be nil")
		}
		p.client = client
		return nil
	}
}

// CachingProviderOption configures a CachingProvider.
type CachingProviderOption func(*CachingProvider) error

// WithFreshnessWindow sets how long a fetched key set is served from cache
// before an access triggers a refetch. The default is DefaultFreshnessWindow.
func WithFreshnessWindow(window time.Duration) CachingProviderOption {
	return func(c *CachingProvider) error {
		if window <= 0 {
			return errors.New("freshness window must be positive")
		}
		c.window = window
		return nil
	}
}

// WithClock sets the time source used for freshness checks. Tests use this
// to step through the freshness window deterministically.
func WithClock(clock Clock) CachingProviderOption {
	return func(c *CachingProvider) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		c.clock = clock
		return nil
	}
}
