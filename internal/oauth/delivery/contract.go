package delivery

import (
	"context"

	"github.com/SlavaShagalov/spotify-auth/internal/models"
	"github.com/SlavaShagalov/spotify-auth/internal/pkg/app"
)

//go:generate mockgen -source=contract.go -destination=mocks/usecase.go -package=mocks UseCase

type UseCase interface {
	app.HealthChecker

	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (models.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenResponse, error)
}
