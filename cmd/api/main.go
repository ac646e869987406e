package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/customer-wishlist/api/middleware"
	"github.com/angelmondragon/customer-wishlist/api/routes"
	"github.com/angelmondragon/customer-wishlist/internal/events"
	"github.com/angelmondragon/customer-wishlist/internal/identity"
	"github.com/angelmondragon/customer-wishlist/internal/settings"
	"github.com/angelmondragon/customer-wishlist/internal/wishlist"
	"github.com/angelmondragon/customer-wishlist/internal/woocommerce"
	"github.com/angelmondragon/customer-wishlist/pkg/config"
	"github.com/angelmondragon/customer-wishlist/pkg/db"
	"github.com/angelmondragon/customer-wishlist/pkg/instance"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
	"github.com/angelmondragon/customer-wishlist/pkg/metrics"
	"github.com/angelmondragon/customer-wishlist/pkg/migrate"
	"github.com/angelmondragon/customer-wishlist/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "wishlist-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "wishlist-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(context.Background(), logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient)
	requireResource(context.Background(), logg, "dev migrations", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(context.Background(), logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	settingsService, err := settings.NewService(settings.NewRepository(dbClient.DB()), logg)
	requireResource(context.Background(), logg, "settings service", err)

	resolver, err := identity.NewResolver(cfg.Guest, settingsService, middleware.UserIDFromContext)
	requireResource(context.Background(), logg, "identity resolver", err)

	wooClient, err := woocommerce.NewClient(cfg.WooCommerce)
	requireResource(context.Background(), logg, "woocommerce client", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:    wishlist.NewRepository(dbClient.DB()),
		Catalog: wooClient,
		Cart:    wooClient,
		Metrics: metrics.NewWishlistMetrics(registry),
		Logger:  logg,
	})
	requireResource(context.Background(), logg, "wishlist service", err)

	dispatcher := events.NewDispatcher()
	dispatcher.OnLogin(wishlistService.HandleLogin)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			wishlistService,
			resolver,
			dispatcher,
			settingsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting wishlist api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down wishlist api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
