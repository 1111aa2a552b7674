package cfaccess

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgeguard/go-cfaccess/jwks"
	"github.com/edgeguard/go-cfaccess/validator"
)

// stubValidator stands in for *validator.Validator so the middleware tests
// exercise routing, status codes and context wiring without real keys.
type stubValidator struct {
	claims   any
	err      error
	calls    atomic.Int32
	gotToken string
}

func (s *stubValidator) ValidateToken(ctx context.Context, tokenString string) (any, error) {
	s.calls.Add(1)
	s.gotToken = tokenString
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func testClaims() *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:   "https://myteam.cloudflareaccess.com",
			Subject:  "a41aafc0-5b11-4c4f-b71a-fd37c5fc1737",
			Audience: []string{"9fd0b9c25d05a30c38e219b8ef2ebb5a2173c4a1d904bc7362aa0a66e21a62ce"},
			Expiry:   1709287200,
			IssuedAt: 1709283600,
		},
		Email: "engineer@example.com",
	}
}

func Test_CheckJWT(t *testing.T) {
	const (
		authenticatedBody = `{"message":"Authenticated."}`
		missingTokenBody  = `{"error":"Unauthorized","message":"No Cloudflare Access token provided"}`
		invalidTokenBody  = `{"error":"Unauthorized","message":"Invalid Cloudflare Access token"}`
		internalErrorBody = `{"error":"Internal Server Error","message":"Something went wrong while checking the Access token"}`
	)

	testCases := []struct {
		name           string
		validator      *stubValidator
		options        []Option
		method         string
		path           string
		token          string
		wantStatusCode int
		wantBody       string
		wantClaims     *validator.ValidatedClaims
	}{
		{
			name:           "it authenticates a request carrying a valid token",
			validator:      &stubValidator{claims: testClaims()},
			method:         http.MethodGet,
			token:          "header.payload.signature",
			wantStatusCode: http.StatusOK,
			wantBody:       authenticatedBody,
			wantClaims:     testClaims(),
		},
		{
			name:           "it rejects a request without a token",
			validator:      &stubValidator{claims: testClaims()},
			method:         http.MethodGet,
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       missingTokenBody,
		},
		{
			name:           "it rejects a request whose token fails validation",
			validator:      &stubValidator{err: &validator.SignatureError{Err: errors.New("crypto/rsa: verification error")}},
			method:         http.MethodGet,
			token:          "header.payload.forged",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       invalidTokenBody,
		},
		{
			name:           "it answers the generic invalid body when the key set cannot be fetched",
			validator:      &stubValidator{err: &jwks.KeyFetchError{URL: "https://myteam.cloudflareaccess.com/cdn-cgi/access/certs", StatusCode: http.StatusServiceUnavailable}},
			method:         http.MethodGet,
			token:          "header.payload.signature",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       invalidTokenBody,
		},
		{
			name:           "it validates OPTIONS requests by default",
			validator:      &stubValidator{claims: testClaims()},
			method:         http.MethodOptions,
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       missingTokenBody,
		},
		{
			name:      "it skips OPTIONS requests when validateOnOptions is disabled",
			validator: &stubValidator{claims: testClaims()},
			options: []Option{
				WithValidateOnOptions(false),
			},
			method:         http.MethodOptions,
			wantStatusCode: http.StatusOK,
			wantBody:       authenticatedBody,
		},
		{
			name:      "it lets a request without a token through when credentials are optional",
			validator: &stubValidator{claims: testClaims()},
			options: []Option{
				WithCredentialsOptional(true),
			},
			method:         http.MethodGet,
			wantStatusCode: http.StatusOK,
			wantBody:       authenticatedBody,
		},
		{
			name:      "it ignores an invalid token when credentials are optional",
			validator: &stubValidator{err: &validator.UnknownKeyError{KeyID: "rotated-away"}},
			options: []Option{
				WithCredentialsOptional(true),
			},
			method:         http.MethodGet,
			token:          "header.payload.signature",
			wantStatusCode: http.StatusOK,
			wantBody:       authenticatedBody,
		},
		{
			name:      "it skips token validation for excluded paths",
			validator: &stubValidator{claims: testClaims()},
			options: []Option{
				WithExclusionUrls([]string{"/health", "/metrics"}),
			},
			method:         http.MethodGet,
			path:           "/health",
			wantStatusCode: http.StatusOK,
			wantBody:       authenticatedBody,
		},
		{
			name:      "it still validates paths that are not excluded",
			validator: &stubValidator{claims: testClaims()},
			options: []Option{
				WithExclusionUrls([]string{"/health", "/metrics"}),
			},
			method:         http.MethodGet,
			path:           "/api/orders",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       missingTokenBody,
		},
		{
			name:      "it supports custom exclusion logic",
			validator: &stubValidator{claims: testClaims()},
			options: []Option{
				WithExclusionUrlHandler(func(r *http.Request) bool {
					return strings.HasPrefix(r.URL.Path, "/public/")
				}),
			},
			method:         http.MethodGet,
			path:           "/public/docs",
			wantStatusCode: http.StatusOK,
			wantBody:       authenticatedBody,
		},
		{
			name:      "it uses a custom error handler when one is set",
			validator: &stubValidator{err: &validator.UnknownKeyError{KeyID: "kid-1"}},
			options: []Option{
				WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					_, _ = w.Write([]byte(`{"error":"Forbidden"}`))
				}),
			},
			method:         http.MethodGet,
			token:          "header.payload.signature",
			wantStatusCode: http.StatusForbidden,
			wantBody:       `{"error":"Forbidden"}`,
		},
		{
			name:      "it reports extraction failures through the error handler",
			validator: &stubValidator{claims: testClaims()},
			options: []Option{
				WithTokenExtractor(func(r *http.Request) (string, error) {
					return "", errors.New("malformed authorization header")
				}),
			},
			method:         http.MethodGet,
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       internalErrorBody,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			options := append([]Option{WithValidator(testCase.validator)}, testCase.options...)
			middleware, err := New(options...)
			require.NoError(t, err)

			var actualClaims *validator.ValidatedClaims
			var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if claims, err := GetClaims[*validator.ValidatedClaims](r.Context()); err == nil {
					actualClaims = claims
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"message":"Authenticated."}`))
			})

			testServer := httptest.NewServer(middleware.CheckJWT(handler))
			defer testServer.Close()

			request, err := http.NewRequest(testCase.method, testServer.URL+testCase.path, nil)
			require.NoError(t, err)

			if testCase.token != "" {
				request.Header.Add(AssertionHeader, testCase.token)
			}

			response, err := testServer.Client().Do(request)
			require.NoError(t, err)

			body, err := io.ReadAll(response.Body)
			require.NoError(t, err)
			defer response.Body.Close()

			assert.Equal(t, testCase.wantStatusCode, response.StatusCode)
			assert.Equal(t, "application/json", response.Header.Get("Content-Type"))
			assert.Equal(t, testCase.wantBody, string(body))

			if want, got := testCase.wantClaims, actualClaims; !cmp.Equal(want, got) {
				t.Fatal(cmp.Diff(want, got))
			}
		})
	}
}

func Test_CheckJWT_PassesExtractedTokenToValidator(t *testing.T) {
	stub := &stubValidator{claims: testClaims()}

	middleware, err := New(WithValidator(stub))
	require.NoError(t, err)

	testServer := httptest.NewServer(middleware.CheckJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	t.Cleanup(testServer.Close)

	request, err := http.NewRequest(http.MethodGet, testServer.URL, nil)
	require.NoError(t, err)
	request.Header.Set(AssertionHeader, "abc.def.ghi")

	response, err := testServer.Client().Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.EqualValues(t, 1, stub.calls.Load())
	assert.Equal(t, "abc.def.ghi", stub.gotToken)
}

func Test_CheckJWT_DoesNotCallValidatorWithoutToken(t *testing.T) {
	stub := &stubValidator{claims: testClaims()}

	middleware, err := New(WithValidator(stub))
	require.NoError(t, err)

	testServer := httptest.NewServer(middleware.CheckJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	t.Cleanup(testServer.Close)

	response, err := testServer.Client().Get(testServer.URL)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
	assert.EqualValues(t, 0, stub.calls.Load())
}

type recordedObservation struct {
	name string
	tags map[string]string
}

type recordingMetrics struct {
	mu         sync.Mutex
	counters   []recordedObservation
	histograms []recordedObservation
}

func (m *recordingMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, recordedObservation{name: name, tags: tags})
}

func (m *recordingMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, recordedObservation{name: name, tags: tags})
}

func (m *recordingMetrics) SetGauge(name string, value float64, tags map[string]string) {}

type recordingSpan struct {
	mu       sync.Mutex
	tags     map[string]string
	finished bool
}

func (s *recordingSpan) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}

func (s *recordingSpan) SetTag(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tags == nil {
		s.tags = map[string]string{}
	}
	s.tags[key], _ = value.(string)
}

func (s *recordingSpan) LogFields(fields ...any) {}

type recordingTracer struct {
	mu    sync.Mutex
	spans []*recordingSpan
	names []string
}

func (t *recordingTracer) StartSpan(operationName string, opts ...any) Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	span := &recordingSpan{}
	t.spans = append(t.spans, span)
	t.names = append(t.names, operationName)
	return span
}

func Test_CheckJWT_RecordsMetricsAndSpans(t *testing.T) {
	stub := &stubValidator{claims: testClaims()}
	metrics := &recordingMetrics{}
	tracer := &recordingTracer{}

	middleware, err := New(
		WithValidator(stub),
		WithMetrics(metrics),
		WithTracer(tracer),
	)
	require.NoError(t, err)

	testServer := httptest.NewServer(middleware.CheckJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	t.Cleanup(testServer.Close)

	authenticated, err := http.NewRequest(http.MethodGet, testServer.URL, nil)
	require.NoError(t, err)
	authenticated.Header.Set(AssertionHeader, "header.payload.signature")

	response, err := testServer.Client().Do(authenticated)
	require.NoError(t, err)
	response.Body.Close()

	response, err = testServer.Client().Get(testServer.URL)
	require.NoError(t, err)
	response.Body.Close()

	require.Len(t, metrics.counters, 2)
	assert.Equal(t, "cfaccess_checks_total", metrics.counters[0].name)
	assert.Equal(t, map[string]string{"outcome": "ok"}, metrics.counters[0].tags)
	assert.Equal(t, map[string]string{"outcome": "missing"}, metrics.counters[1].tags)

	require.Len(t, metrics.histograms, 2)
	assert.Equal(t, "cfaccess_check_duration_seconds", metrics.histograms[0].name)

	require.Len(t, tracer.spans, 2)
	assert.Equal(t, []string{"cfaccess.check_jwt", "cfaccess.check_jwt"}, tracer.names)
	assert.True(t, tracer.spans[0].finished)
	assert.Equal(t, map[string]string{"outcome": "ok"}, tracer.spans[0].tags)
	assert.Equal(t, map[string]string{"outcome": "missing"}, tracer.spans[1].tags)
}

func Test_New(t *testing.T) {
	t.Run("it errors when no validator is provided", func(t *testing.T) {
		_, err := New()
		assert.EqualError(t, err, "invalid middleware configuration: validator cannot be nil (use WithValidator)")
	})

	t.Run("it errors when the validator option receives nil", func(t *testing.T) {
		_, err := New(WithValidator(nil))
		assert.EqualError(t, err, "invalid option: validator cannot be nil (use WithValidator)")
	})

	t.Run("it errors when the error handler is nil", func(t *testing.T) {
		_, err := New(WithValidator(&stubValidator{}), WithErrorHandler(nil))
		assert.EqualError(t, err, "invalid option: errorHandler cannot be nil")
	})

	t.Run("it errors when the token extractor is nil", func(t *testing.T) {
		_, err := New(WithValidator(&stubValidator{}), WithTokenExtractor(nil))
		assert.EqualError(t, err, "invalid option: tokenExtractor cannot be nil")
	})

	t.Run("it errors when the exclusion list is empty", func(t *testing.T) {
		_, err := New(WithValidator(&stubValidator{}), WithExclusionUrls(nil))
		assert.EqualError(t, err, "invalid option: exclusion URLs list cannot be empty")
	})

	t.Run("it errors when the exclusion handler is nil", func(t *testing.T) {
		_, err := New(WithValidator(&stubValidator{}), WithExclusionUrlHandler(nil))
		assert.EqualError(t, err, "invalid option: exclusion URL handler cannot be nil")
	})

	t.Run("it errors when the logger is nil", func(t *testing.T) {
		_, err := New(WithValidator(&stubValidator{}), WithLogger(nil))
		assert.EqualError(t, err, "invalid option: logger cannot be nil")
	})

	t.Run("it errors when the metrics sink is nil", func(t *testing.T) {
		_, err := New(WithValidator(&stubValidator{}), WithMetrics(nil))
		assert.EqualError(t, err, "invalid option: metrics cannot be nil")
	})

	t.Run("it errors when the tracer is nil", func(t *testing.T) {
		_, err := New(WithValidator(&stubValidator{}), WithTracer(nil))
		assert.EqualError(t, err, "invalid option: tracer cannot be nil")
	})
}
