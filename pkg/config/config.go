package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Guest        GuestConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	WooCommerce  WooCommerceConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WISHLIST_APP_ENV" required:"true"`
	Port         string `envconfig:"WISHLIST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WISHLIST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WISHLIST_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"WISHLIST_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WISHLIST_DB_DSN"`
	Driver string `envconfig:"WISHLIST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WISHLIST_DB_HOST"`
	LegacyPort     int    `envconfig:"WISHLIST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WISHLIST_DB_USER"`
	LegacyPassword string `envconfig:"WISHLIST_DB_PASSWORD"`
	LegacyName     string `envconfig:"WISHLIST_DB_NAME"`
	LegacySSLMode  string `envconfig:"WISHLIST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WISHLIST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WISHLIST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WISHLIST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WISHLIST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"WISHLIST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WISHLIST_REDIS_ADDR"`
	Password     string        `envconfig:"WISHLIST_REDIS_PASSWORD"`
	DB           int           `envconfig:"WISHLIST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WISHLIST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WISHLIST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WISHLIST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WISHLIST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WISHLIST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies tokens minted by the storefront identity provider.
// ExpirationMinutes is only used when this service mints tokens itself (dev tooling, tests).
type JWTConfig struct {
	Secret            string `envconfig:"WISHLIST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WISHLIST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WISHLIST_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GuestConfig struct {
	CookieName   string `envconfig:"WISHLIST_GUEST_COOKIE_NAME" default:"wishlist_guest_token"`
	CookiePath   string `envconfig:"WISHLIST_GUEST_COOKIE_PATH" default:"/"`
	CookieDomain string `envconfig:"WISHLIST_GUEST_COOKIE_DOMAIN"`
	CookieSecure bool   `envconfig:"WISHLIST_GUEST_COOKIE_SECURE" default:"false"`
}

type RateLimitConfig struct {
	AddWindow  time.Duration `envconfig:"WISHLIST_RATE_LIMIT_ADD_WINDOW" default:"1m"`
	AddIPLimit int           `envconfig:"WISHLIST_RATE_LIMIT_ADD_LIMIT" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WISHLIST_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WISHLIST_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"WISHLIST_EVENTING_IDEMPOTENCY_TTL" default:"168h"`
}

type WooCommerceConfig struct {
	BaseURL        string        `envconfig:"WISHLIST_WOO_BASE_URL" required:"true"`
	ConsumerKey    string        `envconfig:"WISHLIST_WOO_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"WISHLIST_WOO_CONSUMER_SECRET"`
	Timeout        time.Duration `envconfig:"WISHLIST_WOO_TIMEOUT" default:"5s"`
	MaxRetries     int           `envconfig:"WISHLIST_WOO_MAX_RETRIES" default:"2"`
}

// CronConfig drives the maintenance worker. GuestRetention is raised to the
// longest guest cookie lifetime when set lower.
type CronConfig struct {
	Interval       time.Duration `envconfig:"WISHLIST_CRON_INTERVAL" default:"24h"`
	GuestRetention time.Duration `envconfig:"WISHLIST_CRON_GUEST_RETENTION" default:"720h"`
	LockTTL        time.Duration `envconfig:"WISHLIST_CRON_LOCK_TTL" default:"1h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"WISHLIST_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"WISHLIST_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	LoginSubscription string `envconfig:"WISHLIST_PUBSUB_LOGIN_SUBSCRIPTION"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = "sqlite"
		if db.DSN == "" {
			db.DSN = "file:wishlist.db?cache=shared"
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
