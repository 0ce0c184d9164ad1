package delivery

import (
	"github.com/SlavaShagalov/spotify-auth/internal/models"
)

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func NewRefreshResponseDTO(token models.TokenResponse) RefreshResponse {
	return RefreshResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   token.ExpiresIn,
	}
}
