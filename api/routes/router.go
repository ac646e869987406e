package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/customer-wishlist/api/controllers"
	"github.com/angelmondragon/customer-wishlist/api/middleware"
	"github.com/angelmondragon/customer-wishlist/internal/wishlist"
	"github.com/angelmondragon/customer-wishlist/pkg/config"
	"github.com/angelmondragon/customer-wishlist/pkg/db"
	"github.com/angelmondragon/customer-wishlist/pkg/enums"
	"github.com/angelmondragon/customer-wishlist/pkg/logger"
	"github.com/angelmondragon/customer-wishlist/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	wishlistService wishlist.Service,
	resolver controllers.IdentityResolver,
	dispatcher controllers.LoginDispatcher,
	settingsService controllers.SettingsService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var limiter redis.RateLimiter
	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		limiter = redisClient
		readiness["redis"] = redisClient
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	addPolicy := middleware.NewRateLimitPolicy("wishlist_add", cfg.RateLimit.AddWindow, cfg.RateLimit.AddIPLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/wishlist", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.With(middleware.RateLimit(addPolicy, limiter, logg)).
				Post("/items", controllers.WishlistAddItem(wishlistService, resolver, logg))
			r.Get("/items/{productId}/state", controllers.WishlistItemState(wishlistService, resolver, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Get("/items", controllers.WishlistList(wishlistService, logg))
			r.Delete("/items/{productId}", controllers.WishlistRemoveItem(wishlistService, logg))
			r.Post("/items/{productId}/cart", controllers.WishlistAddToCart(wishlistService, logg))
			r.Post("/merge", controllers.WishlistMerge(dispatcher, resolver, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
		r.Get("/settings", controllers.SettingsGet(settingsService, logg))
		r.Put("/settings", controllers.SettingsUpdate(settingsService, logg))
	})

	return r
}
