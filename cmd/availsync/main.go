package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"availsync/internal/infra/config"
	ginserver "availsync/internal/infra/http/gin"
	"availsync/internal/infra/obs"
)

const serviceName = "availsync"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	shutdownTracing, err := obs.InitTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	metrics := obs.NewMetrics(nil)
	infra, err := buildInfrastructure(ctx, cfg, logger)
	if err != nil {
		logger.Error("infrastructure setup failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer infra.close(logger)

	app := buildApplication(cfg, infra, logger, metrics)
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: infra.ready}, ginserver.Handlers{
		Availability:   app.http,
		AuthMiddleware: ginserver.TokenAuth{Tokens: cfg.APITokens}.Handle,
		Metrics:        metrics,
		MetricsHandler: promhttp.Handler(),
	})

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "backend", cfg.StoreBackend, "hotel_id", cfg.HotelID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := startMessaging(gctx, group, cfg, infra, app, logger, metrics); err != nil {
		logger.Error("messaging setup failed", "error", err)
		stop()
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("availsync stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("availsync stopped")
}
