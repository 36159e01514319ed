package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SIVER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv           = "SIVER_APP_ENV"
	EnvPort             = "SIVER_APP_PORT"
	EnvDBDSN            = "SIVER_DB_DSN"
	EnvDBHost           = "SIVER_DB_HOST"
	EnvDBUser           = "SIVER_DB_USER"
	EnvDBName           = "SIVER_DB_NAME"
	EnvRedisURL         = "SIVER_REDIS_URL"
	EnvJWTSecret        = "SIVER_JWT_SECRET"
	EnvJWTIssuer        = "SIVER_JWT_ISSUER"
	EnvGCPProjectID     = "SIVER_GCP_PROJECT_ID"
	EnvPubSubOrders     = "SIVER_PUBSUB_ORDERS_TOPIC"
	EnvCheckoutCurrency = "SIVER_CHECKOUT_CURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Checkout     CheckoutConfig
	Catalog      CatalogConfig
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate checks ranges envconfig cannot express.
func (c *Config) validate() error {
	err := structValidator.Struct(c)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		problems := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			problems = append(problems, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Cron.LockTTL > 0 && c.Cron.LockTTL >= c.Cron.Interval {
		return fmt.Errorf("invalid config: SIVER_CRON_LOCK_TTL (%s) must be shorter than SIVER_CRON_INTERVAL (%s)", c.Cron.LockTTL, c.Cron.Interval)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"SIVER_APP_ENV" required:"true"`
	Port         string `envconfig:"SIVER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SIVER_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SIVER_LOG_FORMAT" validate:"omitempty,oneof=json console"`
	LogWarnStack bool   `envconfig:"SIVER_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string `envconfig:"SIVER_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SIVER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SIVER_DB_DSN"`
	Driver string `envconfig:"SIVER_DB_DRIVER" default:"postgres" validate:"oneof=postgres sqlite"`

	LegacyHost     string `envconfig:"SIVER_DB_HOST"`
	LegacyPort     int    `envconfig:"SIVER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SIVER_DB_USER"`
	LegacyPassword string `envconfig:"SIVER_DB_PASSWORD"`
	LegacyName     string `envconfig:"SIVER_DB_NAME"`
	LegacySSLMode  string `envconfig:"SIVER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SIVER_DB_MAX_OPEN_CONNS" default:"20" validate:"gte=1"`
	MaxIdleConns    int           `envconfig:"SIVER_DB_MAX_IDLE_CONNS" default:"10" validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `envconfig:"SIVER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SIVER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this at warn. Zero disables query logging.
	SlowQueryThreshold time.Duration `envconfig:"SIVER_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SIVER_REDIS_URL" required:"true" validate:"url"`
	Address      string        `envconfig:"SIVER_REDIS_ADDR"`
	Password     string        `envconfig:"SIVER_REDIS_PASSWORD"`
	DB           int           `envconfig:"SIVER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SIVER_REDIS_POOL_SIZE" default:"10" validate:"gte=1"`
	MinIdleConns int           `envconfig:"SIVER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SIVER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SIVER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SIVER_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"SIVER_REDIS_KEY_PREFIX" default:"siver"`
}

// JWTConfig holds the shared secret used to verify tokens minted by the hosted auth service.
type JWTConfig struct {
	Secret            string `envconfig:"SIVER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SIVER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SIVER_JWT_EXPIRATION_MINUTES" default:"60"`
}

func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite        bool `envconfig:"SIVER_USE_SQLITE" default:"false"`
	AutoMigrate      bool `envconfig:"SIVER_AUTO_MIGRATE" default:"false"`
	StripeAutoSettle bool `envconfig:"SIVER_STRIPE_AUTO_SETTLE" default:"true"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"SIVER_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic                string `envconfig:"SIVER_PUBSUB_ORDERS_TOPIC" default:"siver-order-events"`
	CatalogTopic               string `envconfig:"SIVER_PUBSUB_CATALOG_TOPIC" default:"siver-catalog-events"`
	CatalogReleaseSubscription string `envconfig:"SIVER_PUBSUB_CATALOG_RELEASE_SUBSCRIPTION" default:"siver-catalog-release-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SIVER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50" validate:"gte=1,lte=1000"`
	PollIntervalMS int `envconfig:"SIVER_OUTBOX_PUBLISH_POLL_MS" default:"500" validate:"gte=0"`
	MaxAttempts    int `envconfig:"SIVER_OUTBOX_MAX_ATTEMPTS" default:"10" validate:"gte=1"`
	// MetricsAddr exposes the relay's /metrics when set, e.g. ":9102".
	MetricsAddr string `envconfig:"SIVER_OUTBOX_METRICS_ADDR"`
}

func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CheckoutConfig struct {
	Currency     string        `envconfig:"SIVER_CHECKOUT_CURRENCY" default:"USD" validate:"iso4217"`
	ReplayWindow time.Duration `envconfig:"SIVER_CHECKOUT_REPLAY_WINDOW" default:"10m" validate:"gte=0"`
}

type CatalogConfig struct {
	CacheTTL     time.Duration `envconfig:"SIVER_CATALOG_CACHE_TTL" default:"30s"`
	DefaultLimit int           `envconfig:"SIVER_CATALOG_DEFAULT_LIMIT" default:"25" validate:"gte=1,lte=100"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"SIVER_IDEMPOTENCY_TTL" default:"24h"`
}

// RateLimitConfig throttles checkout submissions per buyer. A zero limit
// disables the check.
type RateLimitConfig struct {
	CheckoutLimit  int           `envconfig:"SIVER_RATE_LIMIT_CHECKOUT_LIMIT" default:"10" validate:"gte=0"`
	CheckoutWindow time.Duration `envconfig:"SIVER_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
}

// CronConfig drives the maintenance worker. A zero PaymentWindow disables
// automatic rejection of unpaid orders.
type CronConfig struct {
	Interval        time.Duration `envconfig:"SIVER_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"SIVER_CRON_LOCK_TTL" default:"55m"`
	PaymentWindow   time.Duration `envconfig:"SIVER_CRON_PAYMENT_WINDOW" default:"240h"`
	OutboxRetention time.Duration `envconfig:"SIVER_CRON_OUTBOX_RETENTION" default:"720h"`
}

func (db *DBConfig) ensureDSN() error {
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
