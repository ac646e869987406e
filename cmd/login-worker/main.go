package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/customer-wishlist/internal/events"
	"github.com/angelmondragon/customer-wishlist/internal/wishlist"
	"github.com/angelmondragon/customer-wishlist/internal/woocommerce"
	"github.com/angelmondragon/customer-wishlist/pkg/config"
	"github.com/angelmondragon/customer-wishlist/pkg/db"
	"github.com/angelmondragon/customer-wishlist/pkg/idempotency"
	"github.com/angelmondragon/customer-wishlist/pkg/instance"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
	"github.com/angelmondragon/customer-wishlist/pkg/pubsub"
	"github.com/angelmondragon/customer-wishlist/pkg/redis"
)

const serviceName = "wishlist-login-worker"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceName})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	wooClient, err := woocommerce.NewClient(cfg.WooCommerce)
	requireResource(ctx, logg, "woocommerce client", err)

	// merges run without a metrics registry; the api process owns /metrics
	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:    wishlist.NewRepository(dbClient.DB()),
		Catalog: wooClient,
		Cart:    wooClient,
		Logger:  logg,
	})
	requireResource(ctx, logg, "wishlist service", err)

	dispatcher := events.NewDispatcher()
	dispatcher.OnLogin(wishlistService.HandleLogin)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	loginConsumer, err := events.NewConsumer(dispatcher, manager, pubsubClient.LoginSubscription(), logg)
	requireResource(ctx, logg, "login consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "login worker ready")

	if err := loginConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "login worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
