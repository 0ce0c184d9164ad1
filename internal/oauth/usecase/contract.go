package usecase

import (
	"context"
	"time"

	"github.com/SlavaShagalov/spotify-auth/internal/models"
)

//go:generate mockgen -source=contract.go -destination=mocks/provider.go -package=mocks Provider

// Provider performs a single token endpoint exchange with the client credentials attached.
type Provider interface {
	HealthCheck(ctx context.Context) error

	Exchange(ctx context.Context, req models.TokenExchangeRequest) (models.TokenResponse, error)
}

type Params struct {
	AuthorizeURL string
	ClientID     string
	RedirectURI  string
	Timeout      time.Duration
}
