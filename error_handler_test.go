package cfaccess

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "missing token",
			err:        ErrJWTMissing,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized","message":"No Cloudflare Access token provided"}`,
		},
		{
			name:       "wrapped missing token",
			err:        fmt.Errorf("check failed: %w", ErrJWTMissing),
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized","message":"No Cloudflare Access token provided"}`,
		},
		{
			name:       "invalid token",
			err:        ErrJWTInvalid,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized","message":"Invalid Cloudflare Access token"}`,
		},
		{
			name:       "invalid token with details",
			err:        &invalidError{details: errors.New("signature verification failed")},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"Unauthorized","message":"Invalid Cloudflare Access token"}`,
		},
		{
			name:       "generic error",
			err:        assert.AnError,
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Internal Server Error","message":"Something went wrong while checking the Access token"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/test", nil)

			DefaultErrorHandler(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func Test_invalidError(t *testing.T) {
	underlying := errors.New("token header is missing the \"kid\" field")
	err := &invalidError{details: underlying}

	t.Run("it matches ErrJWTInvalid", func(t *testing.T) {
		assert.ErrorIs(t, err, ErrJWTInvalid)
	})

	t.Run("it unwraps to the underlying error", func(t *testing.T) {
		assert.ErrorIs(t, err, underlying)
	})

	t.Run("it prints the sentinel and the details", func(t *testing.T) {
		assert.EqualError(t, err, `jwt invalid: token header is missing the "kid" field`)
	})
}
