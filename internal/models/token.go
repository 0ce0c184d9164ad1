package models

import (
	"fmt"
	"log/slog"
)

type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
)

const ResponseTypeCode = "code"

// ProviderCredentials is the client id/secret pair registered with the identity provider.
type ProviderCredentials struct {
	ClientID     string
	ClientSecret string
}

func (c ProviderCredentials) String() string {
	return fmt.Sprintf("{ClientID:%s ClientSecret:***}", c.ClientID)
}

func (c ProviderCredentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client_id", c.ClientID),
		slog.String("client_secret", "***"),
	)
}

type AuthorizationRequest struct {
	ClientID     string
	Scopes       []string
	RedirectURI  string
	ResponseType string
}

type TokenExchangeRequest struct {
	GrantType    GrantType
	Code         string
	RefreshToken string
	RedirectURI  string
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
