package app

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SlavaShagalov/spotify-auth/pkg/statistics"
)

const redacted = "[REDACTED]"

var sensitiveHeaders = map[string]struct{}{
	fiber.HeaderAuthorization: {},
	fiber.HeaderCookie:        {},
	fiber.HeaderSetCookie:     {},
}

var sensitiveQuery = []string{"code", "refresh_token", "access_token"}

type StatisticsPusher interface {
	Push(ctx context.Context, req statistics.Request) error
}

// NewStatisticsMW publishes every handled request. Tokens and authorization
// codes are masked before they leave the process. Handler errors are resolved
// through the app error handler first so the recorded status is the one the
// client receives.
func NewStatisticsMW(stat StatisticsPusher, logger *slog.Logger) (fiber.Handler, error) {
	return func(ctx *fiber.Ctx) error {
		if ctx.Path() == healthPath {
			return ctx.Next()
		}

		if err := ctx.Next(); err != nil {
			if err = ctx.App().ErrorHandler(ctx, err); err != nil {
				_ = ctx.SendStatus(fiber.StatusInternalServerError)
			}
		}

		req := statistics.Request{
			Method:  ctx.Method(),
			URL:     maskURL(ctx.OriginalURL()),
			Status:  ctx.Response().StatusCode(),
			Headers: formatHeaders(ctx.GetReqHeaders()),
		}

		if err := stat.Push(ctx.Context(), req); err != nil {
			logger.Error("push request statistics", slog.String("error", err.Error()))
		}

		return nil
	}, nil
}

func maskURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	parsed.RawQuery = maskQuery(parsed.RawQuery)

	return parsed.String()
}

// maskQuery returns raw unchanged unless it carries a token or a code.
func maskQuery(raw string) string {
	query, err := url.ParseQuery(raw)
	if err != nil {
		return redacted
	}

	masked := false
	for _, key := range sensitiveQuery {
		if query.Has(key) {
			query.Set(key, redacted)
			masked = true
		}
	}
	if !masked {
		return raw
	}

	return query.Encode()
}

func formatHeaders(headers map[string][]string) string {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		value := strings.Join(headers[key], ", ")
		if _, ok := sensitiveHeaders[http.CanonicalHeaderKey(key)]; ok {
			value = redacted
		}
		sb.WriteString(key + ": " + value + "\r\n")
	}

	return sb.String()
}
