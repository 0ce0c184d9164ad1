package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lmittmann/tint"
	"github.com/segmentio/kafka-go"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/SlavaShagalov/spotify-auth/internal/oauth/api"
	"github.com/SlavaShagalov/spotify-auth/internal/oauth/delivery"
	"github.com/SlavaShagalov/spotify-auth/internal/oauth/usecase"
	"github.com/SlavaShagalov/spotify-auth/internal/pkg/app"
	"github.com/SlavaShagalov/spotify-auth/pkg/statistics"
)

type WebApp interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func startApp(webApp WebApp, config app.Config, logger *slog.Logger) {
	logger.Debug("web app starts",
		slog.String("addr", config.Web.Host+":"+config.Web.Port),
		slog.String("mount_path", config.Web.MountPath),
		slog.Any("provider", config.Provider),
		slog.String("client_url", config.ClientURL),
	)

	go func() {
		err := webApp.Start()
		if err != nil {
			panic(err)
		}
	}()
}

func shutdownApp(webApp WebApp, closers []func() error, logger *slog.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Debug("shutdown web app ...")

	const shutdownTimeout = time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := webApp.Shutdown(ctx)
	for _, closeFn := range closers {
		err = multierr.Append(err, closeFn())
	}
	if err != nil {
		logger.Error("shutdown", slog.String("error", err.Error()))
		return
	}

	logger.Debug("web app exited")
}

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "configs/gateway.yaml", "Config file path")
	pflag.Parse()

	config, err := app.ReadLocalConfig(configPath)
	if err != nil {
		panic(err)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.Level(config.Logging.Level)}))

	if err = config.ValidateGateway(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var closers []func() error

	var statisticsMW fiber.Handler
	if len(config.Kafka.Addresses) > 0 {
		kafkaStatWriter := &kafka.Writer{
			Addr:                   kafka.TCP(config.Kafka.Addresses...),
			Topic:                  config.Kafka.Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			Async:                  true,
		}
		closers = append(closers, kafkaStatWriter.Close)

		stat := statistics.NewKafkaStatistics(nil, kafkaStatWriter, nil, logger)

		statisticsMW, err = app.NewStatisticsMW(stat, logger)
		if err != nil {
			panic(err)
		}
	}

	httpClient := &http.Client{Timeout: config.Provider.Timeout()}

	provider := api.New(
		config.Provider.TokenURL,
		httpClient,
		config.Provider.Credentials(),
		config.Provider.MaxRequestFails,
		logger,
	)

	uc := usecase.New(provider, usecase.Params{
		AuthorizeURL: config.Provider.AuthorizeURL,
		ClientID:     config.Provider.ClientID,
		RedirectURI:  config.Provider.RedirectURI,
		Timeout:      config.Provider.Timeout(),
	}, logger)

	cookies := delivery.CookieOptions{
		Secure:           config.Cookie.Secure,
		SameSite:         config.Cookie.SameSite,
		Domain:           config.Cookie.Domain,
		Path:             config.Cookie.Path,
		MaxAgeFromExpiry: config.Cookie.MaxAgeFromExpiry,
	}

	webApp := app.NewFiberApp(config.Web, delivery.New(uc, config.ClientURL, cookies, logger), statisticsMW, logger)

	startApp(webApp, config, logger)
	shutdownApp(webApp, closers, logger)
}
