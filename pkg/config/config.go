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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Razorpay     RazorpayConfig
	Inventory    InventoryConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FABRICSPEAKS_APP_ENV" required:"true"`
	Port         string `envconfig:"FABRICSPEAKS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FABRICSPEAKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FABRICSPEAKS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FABRICSPEAKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FABRICSPEAKS_DB_DSN"`
	Driver string `envconfig:"FABRICSPEAKS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FABRICSPEAKS_DB_HOST"`
	LegacyPort     int    `envconfig:"FABRICSPEAKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FABRICSPEAKS_DB_USER"`
	LegacyPassword string `envconfig:"FABRICSPEAKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FABRICSPEAKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FABRICSPEAKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FABRICSPEAKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FABRICSPEAKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FABRICSPEAKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FABRICSPEAKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FABRICSPEAKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FABRICSPEAKS_REDIS_ADDR"`
	Password     string        `envconfig:"FABRICSPEAKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FABRICSPEAKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FABRICSPEAKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FABRICSPEAKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FABRICSPEAKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FABRICSPEAKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FABRICSPEAKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FABRICSPEAKS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FABRICSPEAKS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FABRICSPEAKS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CheckoutConfig struct {
	ShippingFeePaise  int64         `envconfig:"FABRICSPEAKS_CHECKOUT_SHIPPING_FEE_PAISE" default:"2000"`
	TaxRatePercent    int64         `envconfig:"FABRICSPEAKS_CHECKOUT_TAX_RATE_PERCENT" default:"8"`
	GatewayTimeout    time.Duration `envconfig:"FABRICSPEAKS_CHECKOUT_GATEWAY_TIMEOUT" default:"10s"`
	PendingOrderTTL   time.Duration `envconfig:"FABRICSPEAKS_CHECKOUT_PENDING_ORDER_TTL" default:"30m"`
	MaxQuantityPerRow int           `envconfig:"FABRICSPEAKS_CHECKOUT_MAX_QTY_PER_ROW" default:"20"`
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"FABRICSPEAKS_RAZORPAY_KEY_ID" required:"true"`
	KeySecret     string `envconfig:"FABRICSPEAKS_RAZORPAY_KEY_SECRET" required:"true"`
	WebhookSecret string `envconfig:"FABRICSPEAKS_RAZORPAY_WEBHOOK_SECRET"`
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"FABRICSPEAKS_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
	OutlookWindowDays int `envconfig:"FABRICSPEAKS_INVENTORY_OUTLOOK_WINDOW_DAYS" default:"30"`
}

type CronConfig struct {
	SweepInterval time.Duration `envconfig:"FABRICSPEAKS_CRON_SWEEP_INTERVAL" default:"1m"`
	LockTTL       time.Duration `envconfig:"FABRICSPEAKS_CRON_LOCK_TTL" default:"5m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FABRICSPEAKS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"FABRICSPEAKS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FABRICSPEAKS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"FABRICSPEAKS_PUBSUB_ORDERS_TOPIC" default:"fs-order-events"`
	OrdersSubscription string `envconfig:"FABRICSPEAKS_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FABRICSPEAKS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FABRICSPEAKS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FABRICSPEAKS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FABRICSPEAKS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FABRICSPEAKS_AUTO_MIGRATE" default:"false"`
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
