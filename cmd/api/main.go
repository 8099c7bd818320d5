package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/adapters/http"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/bootstrap"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/config"
	"github.com/Mithun3110/Intelligent-Onboarding-Assistant/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(bootstrap.ServiceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(
		bootstrap.ServiceName,
		app.Answers,
		app.Stats,
		app.History,
		app.Metrics,
		logger,
		httpadapter.TrafficConfig{
			RateLimitRPS:   float64(cfg.APIRateLimitRPS),
			RateLimitBurst: cfg.APIRateLimitBurst,
			MaxInFlight:    cfg.APIMaxInFlight,
		},
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if app.Refresher != nil {
		go func() {
			if err := app.Refresher.Listen(ctx, app.Reloader); err != nil {
				logger.Error("refresh subscriber stopped", slog.String("error", err.Error()))
			}
		}()
	}

	go func() {
		logger.Info("api listening", slog.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", slog.String("error", err.Error()))
	}
}
