package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/SlavaShagalov/spotify-auth/internal/models"
	pkgErrors "github.com/SlavaShagalov/spotify-auth/internal/pkg/errors"
)

// Scopes requested on every login, in the order they are sent.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-modify-public",
	"streaming",
}

type UseCase struct {
	provider Provider
	params   Params
	logger   *slog.Logger
}

func New(provider Provider, params Params, logger *slog.Logger) *UseCase {
	return &UseCase{
		provider: provider,
		params:   params,
		logger:   logger,
	}
}

func (u *UseCase) HealthCheck(ctx context.Context) error {
	return u.provider.HealthCheck(ctx)
}

func (u *UseCase) AuthorizationRequest() models.AuthorizationRequest {
	scopes := make([]string, len(Scopes))
	copy(scopes, Scopes)

	return models.AuthorizationRequest{
		ClientID:     u.params.ClientID,
		Scopes:       scopes,
		RedirectURI:  u.params.RedirectURI,
		ResponseType: models.ResponseTypeCode,
	}
}

// AuthorizationURL returns the provider page the browser is sent to on login.
func (u *UseCase) AuthorizationURL() string {
	req := u.AuthorizationRequest()

	query := url.Values{}
	query.Set("client_id", req.ClientID)
	query.Set("response_type", req.ResponseType)
	query.Set("redirect_uri", req.RedirectURI)
	query.Set("scope", strings.Join(req.Scopes, " "))

	sep := "?"
	if strings.Contains(u.params.AuthorizeURL, "?") {
		sep = "&"
	}

	return u.params.AuthorizeURL + sep + query.Encode()
}

// ExchangeCode trades an authorization code for an access and refresh token pair.
func (u *UseCase) ExchangeCode(ctx context.Context, code string) (models.TokenResponse, error) {
	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	token, err := u.provider.Exchange(ctx, models.TokenExchangeRequest{
		GrantType:   models.GrantAuthorizationCode,
		Code:        code,
		RedirectURI: u.params.RedirectURI,
	})
	if err != nil {
		return models.TokenResponse{}, errors.Wrap(err, "exchange authorization code")
	}

	if token.RefreshToken == "" {
		return models.TokenResponse{}, errors.Wrap(pkgErrors.ErrMalformedResponse, "missing refresh_token")
	}

	u.logger.Debug("authorization code exchanged", slog.Int("expires_in", token.ExpiresIn))

	return token, nil
}

// Refresh trades a refresh token for a new access token. The returned
// response never carries a refresh token.
func (u *UseCase) Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error) {
	ctx, cancel := u.withTimeout(ctx)
	defer cancel()

	token, err := u.provider.Exchange(ctx, models.TokenExchangeRequest{
		GrantType:    models.GrantRefreshToken,
		RefreshToken: refreshToken,
	})
	if err != nil {
		return models.TokenResponse{}, errors.Wrap(err, "refresh access token")
	}

	token.RefreshToken = ""
	u.logger.Debug("access token refreshed", slog.Int("expires_in", token.ExpiresIn))

	return token, nil
}

func (u *UseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if u.params.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, u.params.Timeout)
}
