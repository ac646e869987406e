package config

const (
	EnvPrefix = "WISHLIST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv       = "WISHLIST_APP_ENV"
	EnvPort         = "WISHLIST_APP_PORT"
	EnvLogLevel     = "WISHLIST_LOG_LEVEL"
	EnvLogWarnStack = "WISHLIST_LOG_WARN_STACK"

	EnvDBDSN      = "WISHLIST_DB_DSN"
	EnvDBDriver   = "WISHLIST_DB_DRIVER"
	EnvDBHost     = "WISHLIST_DB_HOST"
	EnvDBPort     = "WISHLIST_DB_PORT"
	EnvDBUser     = "WISHLIST_DB_USER"
	EnvDBPassword = "WISHLIST_DB_PASSWORD"
	EnvDBName     = "WISHLIST_DB_NAME"
	EnvDBSSLMode  = "WISHLIST_DB_SSLMODE"

	EnvRedisURL = "WISHLIST_REDIS_URL"

	EnvJWTSecret = "WISHLIST_JWT_SECRET"
	EnvJWTIssuer = "WISHLIST_JWT_ISSUER"

	EnvGuestCookieName   = "WISHLIST_GUEST_COOKIE_NAME"
	EnvGuestCookieDomain = "WISHLIST_GUEST_COOKIE_DOMAIN"
	EnvGuestCookieSecure = "WISHLIST_GUEST_COOKIE_SECURE"

	EnvWooBaseURL        = "WISHLIST_WOO_BASE_URL"
	EnvWooConsumerKey    = "WISHLIST_WOO_CONSUMER_KEY"
	EnvWooConsumerSecret = "WISHLIST_WOO_CONSUMER_SECRET"

	EnvGCPProjectID       = "WISHLIST_GCP_PROJECT_ID"
	EnvPubSubLoginSub     = "WISHLIST_PUBSUB_LOGIN_SUBSCRIPTION"
	EnvUseSQLite          = "WISHLIST_USE_SQLITE"
	EnvAutoMigrate        = "WISHLIST_AUTO_MIGRATE"
	EnvAddRateLimitWindow = "WISHLIST_RATE_LIMIT_ADD_WINDOW"
	EnvAddRateLimit       = "WISHLIST_RATE_LIMIT_ADD_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
