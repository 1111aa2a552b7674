package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	// DefaultFetchTimeout bounds a single certs request.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultFreshnessWindow is how long a fetched key set is served from
	// cache before the next access triggers a refetch. Access rotates its
	// signing keys infrequently, so a day is comfortable.
	DefaultFreshnessWindow = 24 * time.Hour

	// maxResponseSize limits how much of the certs response is read.
	// A real key set is a few kilobytes.
	maxResponseSize = 1 * 1024 * 1024

	// maxErrorBody limits how much response body a KeyFetchError retains.
	maxErrorBody = 512
)

// KeyFetchError reports a failed attempt to retrieve the signing keys.
// Either StatusCode and Body are set, meaning the endpoint answered with a
// non-200 status, or Err is set, meaning the request never produced a usable
// response (transport failure, timeout, or an unparseable body).
type KeyFetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *KeyFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching key set from %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching key set from %s: %v", e.URL, e.Err)
}

func (e *KeyFetchError) Unwrap() error {
	return e.Err
}

// Clock supplies the current time. It exists so tests can step through the
// freshness window without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Provider fetches the public signing keys of one Access team from its
// https://<team-domain>/cdn-cgi/access/certs endpoint. Every FetchKeys call
// hits the network; most callers want a CachingProvider instead.
type Provider struct {
	certsURL string
	client   *http.Client
}

// NewProvider builds and returns a new *Provider.
//
// Required options:
//   - WithTeamDomain: the Access team domain the keys belong to
//
// Optional options:
//   - WithCertsURL: overrides the URL derived from the team domain
//   - WithCustomClient: custom HTTP client
func NewProvider(opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		client: &http.Client{Timeout: DefaultFetchTimeout},
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if p.certsURL == "" {
		return nil, fmt.Errorf("team domain is required (use WithTeamDomain)")
	}

	return p, nil
}

// CertsURL returns the endpoint FetchKeys reads from.
func (p *Provider) CertsURL() string {
	return p.certsURL
}

// FetchKeys downloads and parses the team's current key set.
func (p *Provider) FetchKeys(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.certsURL, nil)
	if err != nil {
		return nil, &KeyFetchError{URL: p.certsURL, Err: err}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &KeyFetchError{URL: p.certsURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &KeyFetchError{URL: p.certsURL, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &KeyFetchError{URL: p.certsURL, StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, &KeyFetchError{URL: p.certsURL, Err: fmt.Errorf("parsing key set: %w", err)}
	}

	return set, nil
}

// GetKeys implements the validator's KeyProvider contract by fetching on
// every call.
func (p *Provider) GetKeys(ctx context.Context) (jwk.Set, error) {
	return p.FetchKeys(ctx)
}

func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}

// CachingProvider wraps a Provider and keeps the fetched key set in memory.
// Staleness is checked only when GetKeys is called: a set older than the
// freshness window is refetched in the calling goroutine, and nothing runs
// in the background between calls.
type CachingProvider struct {
	provider *Provider
	window   time.Duration
	clock    Clock

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time
}

// NewCachingProvider builds and returns a new *CachingProvider.
//
// Accepts both ProviderOption and CachingProviderOption values, so the
// Provider options can be passed without any wrapper.
//
// Required options:
//   - WithTeamDomain: the Access team domain the keys belong to
//
// Optional options:
//   - WithFreshnessWindow: how long a fetched set is served from cache
//     (default: 24 hours)
//   - WithClock: custom time source
//   - WithCertsURL: overrides the URL derived from the team domain
//   - WithCustomClient: custom HTTP client
func NewCachingProvider(opts ...any) (*CachingProvider, error) {
	c := &CachingProvider{
		window: DefaultFreshnessWindow,
		clock:  systemClock{},
	}

	var providerOpts []ProviderOption
	for _, opt := range opts {
		switch o := opt.(type) {
		case ProviderOption:
			providerOpts = append(providerOpts, o)
		case CachingProviderOption:
			if err := o(c); err != nil {
				return nil, fmt.Errorf("invalid option: %w", err)
			}
		default:
			return nil, fmt.Errorf("invalid option type: %T (must be ProviderOption or CachingProviderOption)", opt)
		}
	}

	provider, err := NewProvider(providerOpts...)
	if err != nil {
		return nil, err
	}
	c.provider = provider

	return c, nil
}

// CertsURL returns the endpoint the underlying Provider reads from.
func (c *CachingProvider) CertsURL() string {
	return c.provider.CertsURL()
}

// GetKeys returns the cached key set, refetching it first when the cached
// copy is missing or older than the freshness window. A failed refetch is
// returned as is; the stale set is never served in its place.
func (c *CachingProvider) GetKeys(ctx context.Context) (jwk.Set, error) {
	now := c.clock.Now()

	c.mu.RLock()
	set := c.set
	fetchedAt := c.fetchedAt
	c.mu.RUnlock()

	if set != nil && now.Sub(fetchedAt) < c.window {
		return set, nil
	}

	// The fetch happens outside the lock, so concurrent callers that all
	// observe a stale set will race to refresh it. Whichever write lands
	// last wins; every fetched set is equally usable.
	fresh, err := c.provider.FetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.set = fresh
	// Racing refreshers may land out of order; the recorded fetch time
	// never moves backwards.
	if now.After(c.fetchedAt) {
		c.fetchedAt = now
	}
	c.mu.Unlock()

	return fresh, nil
}
