package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Cart          CartConfig
	Checkout      CheckoutConfig
	MoMo          MoMoConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	AuthRateLimit AuthRateLimitConfig
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
	Env          string `envconfig:"VINAVAX_APP_ENV" required:"true"`
	Port         string `envconfig:"VINAVAX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VINAVAX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VINAVAX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VINAVAX_DB_DSN"`
	Driver string `envconfig:"VINAVAX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VINAVAX_DB_HOST"`
	LegacyPort     int    `envconfig:"VINAVAX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VINAVAX_DB_USER"`
	LegacyPassword string `envconfig:"VINAVAX_DB_PASSWORD"`
	LegacyName     string `envconfig:"VINAVAX_DB_NAME"`
	LegacySSLMode  string `envconfig:"VINAVAX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VINAVAX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VINAVAX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VINAVAX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VINAVAX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VINAVAX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VINAVAX_REDIS_ADDR"`
	Password     string        `envconfig:"VINAVAX_REDIS_PASSWORD"`
	DB           int           `envconfig:"VINAVAX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VINAVAX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VINAVAX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VINAVAX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VINAVAX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VINAVAX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VINAVAX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VINAVAX_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VINAVAX_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VINAVAX_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VINAVAX_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VINAVAX_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VINAVAX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VINAVAX_ARGON_KEY_LEN" default:"32"`
}

type CartConfig struct {
	TTL time.Duration `envconfig:"VINAVAX_CART_TTL" default:"168h"`
}

type CheckoutConfig struct {
	SessionTTL time.Duration `envconfig:"VINAVAX_CHECKOUT_SESSION_TTL" default:"30m"`
}

// MoMoConfig carries the payment gateway credentials and callback routes.
type MoMoConfig struct {
	PartnerCode string        `envconfig:"VINAVAX_MOMO_PARTNER_CODE"`
	AccessKey   string        `envconfig:"VINAVAX_MOMO_ACCESS_KEY"`
	SecretKey   string        `envconfig:"VINAVAX_MOMO_SECRET_KEY"`
	Endpoint    string        `envconfig:"VINAVAX_MOMO_ENDPOINT" default:"https://test-payment.momo.vn/v2/gateway/api/create"`
	RedirectURL string        `envconfig:"VINAVAX_MOMO_REDIRECT_URL"`
	IPNURL      string        `envconfig:"VINAVAX_MOMO_IPN_URL"`
	RequestType string        `envconfig:"VINAVAX_MOMO_REQUEST_TYPE" default:"captureWallet"`
	Timeout     time.Duration `envconfig:"VINAVAX_MOMO_TIMEOUT" default:"15s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VINAVAX_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"VINAVAX_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"VINAVAX_PUBSUB_ORDERS_TOPIC" default:"vv-order-events"`
	OrdersSubscription string `envconfig:"VINAVAX_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VINAVAX_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VINAVAX_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VINAVAX_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"VINAVAX_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"VINAVAX_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"VINAVAX_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
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
