package delivery

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	pkgErrors "github.com/SlavaShagalov/spotify-auth/internal/pkg/errors"
)

type CookieOptions struct {
	Secure   bool
	SameSite string
	Domain   string
	Path     string
	// MaxAgeFromExpiry makes the access_token cookie expire together with the token.
	MaxAgeFromExpiry bool
}

func (d *Delivery) setCookie(ctx *fiber.Ctx, name, value string, expiresIn int) {
	cookie := &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     d.cookies.Path,
		Domain:   d.cookies.Domain,
		Secure:   d.cookies.Secure,
		HTTPOnly: true,
		SameSite: strings.ToLower(d.cookies.SameSite),
	}
	if d.cookies.MaxAgeFromExpiry && expiresIn > 0 {
		cookie.MaxAge = expiresIn
	}

	ctx.Cookie(cookie)
}

// failureKind names the cause for logs only; callers always get the same message.
func failureKind(err error) string {
	switch {
	case errors.Is(err, pkgErrors.ErrProviderRejected):
		return "rejected"
	case errors.Is(err, pkgErrors.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, pkgErrors.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, pkgErrors.ErrTransport):
		return "transport"
	default:
		return "unknown"
	}
}
