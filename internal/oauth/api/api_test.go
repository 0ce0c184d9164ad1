package api

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlavaShagalov/spotify-auth/internal/models"
	pkgErrors "github.com/SlavaShagalov/spotify-auth/internal/pkg/errors"
)

var testCredentials = models.ProviderCredentials{
	ClientID:     "client-123",
	ClientSecret: "secret-456",
}

func newTestAPI(t *testing.T, handler http.HandlerFunc, maxRequestFails uint32, timeout time.Duration) *API {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(server.URL, &http.Client{Timeout: timeout}, testCredentials, maxRequestFails, logger)
}

func TestAPI_Exchange_AuthorizationCode(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("client-123:secret-456"))
		assert.Equal(t, expected, r.Header.Get("Authorization"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "auth-code", r.PostForm.Get("code"))
		assert.Equal(t, "http://localhost:8080/callback", r.PostForm.Get("redirect_uri"))
		assert.Empty(t, r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh","scope":"streaming"}`))
	}, 0, time.Second)

	token, err := a.Exchange(context.Background(), models.TokenExchangeRequest{
		GrantType:   models.GrantAuthorizationCode,
		Code:        "auth-code",
		RedirectURI: "http://localhost:8080/callback",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TokenResponse{
		AccessToken:  "access",
		TokenType:    "Bearer",
		Scope:        "streaming",
		ExpiresIn:    3600,
		RefreshToken: "refresh",
	}, token)
}

func TestAPI_Exchange_RefreshToken(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh", r.PostForm.Get("refresh_token"))
		assert.Empty(t, r.PostForm.Get("code"))
		assert.Empty(t, r.PostForm.Get("redirect_uri"))

		_, _ = w.Write([]byte(`{"access_token":"new-access","token_type":"Bearer","expires_in":3600}`))
	}, 0, time.Second)

	token, err := a.Exchange(context.Background(), models.TokenExchangeRequest{
		GrantType:    models.GrantRefreshToken,
		RefreshToken: "refresh",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)
	assert.Equal(t, 3600, token.ExpiresIn)
	assert.Empty(t, token.RefreshToken)
}

func TestAPI_Exchange_Rejected(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid authorization code"}`))
	}, 0, time.Second)

	_, err := a.Exchange(context.Background(), models.TokenExchangeRequest{
		GrantType: models.GrantAuthorizationCode,
		Code:      "bad",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgErrors.ErrProviderRejected)

	var providerErr *pkgErrors.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, http.StatusBadRequest, providerErr.Status)
	assert.Equal(t, "invalid_grant", providerErr.Code)
	assert.Equal(t, "Invalid authorization code", providerErr.Description)
}

func TestAPI_Exchange_MalformedBody(t *testing.T) {
	tests := map[string]string{
		"not json":        `<html>oops</html>`,
		"no access token": `{"token_type":"Bearer","expires_in":3600}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}, 0, time.Second)

			_, err := a.Exchange(context.Background(), models.TokenExchangeRequest{
				GrantType:    models.GrantRefreshToken,
				RefreshToken: "refresh",
			})
			assert.ErrorIs(t, err, pkgErrors.ErrMalformedResponse)
		})
	}
}

func TestAPI_Exchange_Timeout(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, 0, 50*time.Millisecond)

	_, err := a.Exchange(context.Background(), models.TokenExchangeRequest{
		GrantType: models.GrantAuthorizationCode,
		Code:      "auth-code",
	})
	assert.ErrorIs(t, err, pkgErrors.ErrTransport)
}

func TestAPI_Exchange_KeepsTransportCause(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.Exchange(ctx, models.TokenExchangeRequest{
		GrantType: models.GrantAuthorizationCode,
		Code:      "auth-code",
	})
	assert.ErrorIs(t, err, pkgErrors.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAPI_Exchange_UnsupportedGrant(t *testing.T) {
	var calls atomic.Int32
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, 0, time.Second)

	_, err := a.Exchange(context.Background(), models.TokenExchangeRequest{GrantType: "password"})
	assert.Error(t, err)
	assert.Zero(t, calls.Load())
}

func TestAPI_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, 2, time.Second)

	req := models.TokenExchangeRequest{GrantType: models.GrantRefreshToken, RefreshToken: "refresh"}

	for i := 0; i < 2; i++ {
		_, err := a.Exchange(context.Background(), req)
		assert.ErrorIs(t, err, pkgErrors.ErrProviderUnavailable)
	}
	require.Error(t, a.HealthCheck(context.Background()))

	_, err := a.Exchange(context.Background(), req)
	assert.ErrorIs(t, err, pkgErrors.ErrProviderUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAPI_CircuitBreaker_IgnoresRejections(t *testing.T) {
	var calls atomic.Int32
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}, 1, time.Second)

	req := models.TokenExchangeRequest{GrantType: models.GrantRefreshToken}

	for i := 0; i < 3; i++ {
		_, err := a.Exchange(context.Background(), req)
		assert.ErrorIs(t, err, pkgErrors.ErrProviderRejected)
	}
	assert.Equal(t, int32(3), calls.Load())
	assert.NoError(t, a.HealthCheck(context.Background()))
}
