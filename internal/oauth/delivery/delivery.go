package delivery

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/SlavaShagalov/spotify-auth/internal/oauth/delivery/errors"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

type Delivery struct {
	useCase   UseCase
	clientURL string
	cookies   CookieOptions
	logger    *slog.Logger
}

func New(useCase UseCase, clientURL string, cookies CookieOptions, logger *slog.Logger) *Delivery {
	return &Delivery{
		useCase:   useCase,
		clientURL: clientURL,
		cookies:   cookies,
		logger:    logger,
	}
}

func (d *Delivery) HealthCheck(ctx context.Context) error {
	return d.useCase.HealthCheck(ctx)
}

func (d *Delivery) AddHandlers(router fiber.Router) {
	router.Get("/login", d.login)
	router.Get("/callback", d.callback)
	router.Get("/refresh_token", d.refreshToken)
}

func (d *Delivery) login(ctx *fiber.Ctx) error {
	return ctx.Redirect(d.useCase.AuthorizationURL(), fiber.StatusFound)
}

func (d *Delivery) callback(ctx *fiber.Ctx) error {
	code := ctx.Query("code")

	token, err := d.useCase.ExchangeCode(ctx.UserContext(), code)
	if err != nil {
		d.logger.Error("authorization code exchange failed",
			slog.String("kind", failureKind(err)),
			slog.String("provider_error", ctx.Query("error")),
			slog.String("error", err.Error()),
		)
		return sendFailure(ctx, errors.ErrAuthentication)
	}

	d.setCookie(ctx, AccessTokenCookie, token.AccessToken, token.ExpiresIn)
	d.setCookie(ctx, RefreshTokenCookie, token.RefreshToken, 0)

	return ctx.Redirect(d.clientURL, fiber.StatusFound)
}

// refreshToken never touches the refresh_token cookie: the provider does not
// reissue it on this grant.
func (d *Delivery) refreshToken(ctx *fiber.Ctx) error {
	refreshToken := ctx.Cookies(RefreshTokenCookie)

	token, err := d.useCase.Refresh(ctx.UserContext(), refreshToken)
	if err != nil {
		d.logger.Error("access token refresh failed",
			slog.String("kind", failureKind(err)),
			slog.Bool("cookie_present", refreshToken != ""),
			slog.String("error", err.Error()),
		)
		return sendFailure(ctx, errors.ErrTokenRefresh)
	}

	d.setCookie(ctx, AccessTokenCookie, token.AccessToken, token.ExpiresIn)

	return ctx.Status(fiber.StatusOK).JSON(NewRefreshResponseDTO(token))
}

func sendFailure(ctx *fiber.Ctx, authErr errors.AuthError) error {
	ctx.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return ctx.Status(fiber.StatusInternalServerError).SendString(authErr.Error())
}
