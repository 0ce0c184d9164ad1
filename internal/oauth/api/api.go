package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"

	"github.com/SlavaShagalov/spotify-auth/internal/models"
	pkgErrors "github.com/SlavaShagalov/spotify-auth/internal/pkg/errors"
)

const maxResponseSize = 1 << 20

type providerErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// API talks to the provider token endpoint on behalf of the registered client.
type API struct {
	tokenURL    string
	client      *http.Client
	credentials models.ProviderCredentials
	breaker     *gobreaker.CircuitBreaker[models.TokenResponse]
	logger      *slog.Logger
}

// New creates a token endpoint client. The circuit breaker opens after
// maxRequestFails consecutive transport or 5xx failures; zero keeps it closed.
func New(
	tokenURL string,
	client *http.Client,
	credentials models.ProviderCredentials,
	maxRequestFails uint32,
	logger *slog.Logger,
) *API {
	breaker := gobreaker.NewCircuitBreaker[models.TokenResponse](gobreaker.Settings{
		Name: "token-endpoint",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return maxRequestFails > 0 && counts.ConsecutiveFailures >= maxRequestFails
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, pkgErrors.ErrProviderRejected)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &API{
		tokenURL:    tokenURL,
		client:      client,
		credentials: credentials,
		breaker:     breaker,
		logger:      logger,
	}
}

func (a *API) Exchange(ctx context.Context, req models.TokenExchangeRequest) (models.TokenResponse, error) {
	resp, err := a.breaker.Execute(func() (models.TokenResponse, error) {
		return a.exchange(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return models.TokenResponse{}, multierr.Combine(pkgErrors.ErrProviderUnavailable, err)
	}

	return resp, err
}

func (a *API) exchange(ctx context.Context, req models.TokenExchangeRequest) (models.TokenResponse, error) {
	form, err := encodeForm(req)
	if err != nil {
		return models.TokenResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.TokenResponse{}, errors.Wrap(err, "build token request")
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(a.credentials.ClientID, a.credentials.ClientSecret)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return models.TokenResponse{}, multierr.Combine(pkgErrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return models.TokenResponse{}, multierr.Combine(pkgErrors.ErrTransport, err)
	}

	a.logger.Debug("token endpoint responded",
		slog.String("grant_type", string(req.GrantType)),
		slog.Int("status", resp.StatusCode),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.TokenResponse{}, newProviderError(resp.StatusCode, body)
	}

	var token models.TokenResponse
	if err = json.Unmarshal(body, &token); err != nil {
		return models.TokenResponse{}, multierr.Combine(pkgErrors.ErrMalformedResponse, err)
	}
	if token.AccessToken == "" {
		return models.TokenResponse{}, errors.Wrap(pkgErrors.ErrMalformedResponse, "missing access_token")
	}

	return token, nil
}

func encodeForm(req models.TokenExchangeRequest) (url.Values, error) {
	form := url.Values{}
	form.Set("grant_type", string(req.GrantType))

	switch req.GrantType {
	case models.GrantAuthorizationCode:
		form.Set("code", req.Code)
		form.Set("redirect_uri", req.RedirectURI)
	case models.GrantRefreshToken:
		form.Set("refresh_token", req.RefreshToken)
	default:
		return nil, errors.Errorf("unsupported grant type %q", req.GrantType)
	}

	return form, nil
}

func newProviderError(status int, body []byte) *pkgErrors.ProviderError {
	providerErr := &pkgErrors.ProviderError{Status: status}

	var errBody providerErrorBody
	if json.Unmarshal(body, &errBody) == nil {
		providerErr.Code = errBody.Error
		providerErr.Description = errBody.ErrorDescription
	}

	return providerErr
}

// HealthCheck fails while the circuit breaker is open.
func (a *API) HealthCheck(_ context.Context) error {
	if a.breaker.State() == gobreaker.StateOpen {
		return pkgErrors.ErrProviderUnavailable
	}
	return nil
}
