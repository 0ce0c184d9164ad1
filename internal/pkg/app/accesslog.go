package app

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	slogfiber "github.com/samber/slog-fiber"
)

// newAccessLogMW logs every request except health probes. Authorization
// codes and tokens in the query string are masked the same way as in the
// statistics records.
func newAccessLogMW(logger *slog.Logger) fiber.Handler {
	return slogfiber.NewWithConfig(slog.New(accessLogHandler{logger.Handler()}), slogfiber.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
		Filters: []slogfiber.Filter{
			slogfiber.IgnorePath(healthPath),
		},
	})
}

type accessLogHandler struct {
	slog.Handler
}

func (h accessLogHandler) Handle(ctx context.Context, record slog.Record) error {
	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		masked.AddAttrs(maskRequestAttr(attr))
		return true
	})

	return h.Handler.Handle(ctx, masked)
}

func (h accessLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return accessLogHandler{h.Handler.WithAttrs(attrs)}
}

func (h accessLogHandler) WithGroup(name string) slog.Handler {
	return accessLogHandler{h.Handler.WithGroup(name)}
}

func maskRequestAttr(attr slog.Attr) slog.Attr {
	if attr.Key != "request" || attr.Value.Kind() != slog.KindGroup {
		return attr
	}

	group := attr.Value.Group()
	attrs := make([]slog.Attr, 0, len(group))
	for _, a := range group {
		if a.Key == "query" {
			a = slog.String(a.Key, maskQuery(a.Value.String()))
		}
		attrs = append(attrs, a)
	}

	return slog.Attr{Key: attr.Key, Value: slog.GroupValue(attrs...)}
}
