package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const healthPath = "/manage/health"

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type Delivery interface {
	HealthChecker

	AddHandlers(router fiber.Router)
}

type FiberApp struct {
	app  *fiber.App
	addr string
}

// NewFiberApp mounts the delivery under config.MountPath. statisticsMW may be nil.
func NewFiberApp(config WebConfig, delivery Delivery, statisticsMW fiber.Handler, logger *slog.Logger) *FiberApp {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(newAccessLogMW(logger))
	if statisticsMW != nil {
		app.Use(statisticsMW)
	}
	app.Use(recover.New())

	app.Get(healthPath, func(ctx *fiber.Ctx) error {
		if err := delivery.HealthCheck(ctx.UserContext()); err != nil {
			logger.Warn("health check failed", slog.String("error", err.Error()))
			return ctx.SendStatus(fiber.StatusServiceUnavailable)
		}
		return ctx.SendStatus(fiber.StatusOK)
	})

	var router fiber.Router = app
	if config.MountPath != "" {
		router = app.Group(config.MountPath)
	}
	delivery.AddHandlers(router)

	return &FiberApp{
		app:  app,
		addr: config.Host + ":" + config.Port,
	}
}

func (a *FiberApp) Start() error {
	return a.app.Listen(a.addr)
}

func (a *FiberApp) Shutdown(ctx context.Context) error {
	return a.app.ShutdownWithContext(ctx)
}

func (a *FiberApp) Test(req *http.Request) (*http.Response, error) {
	return a.app.Test(req)
}
