package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "SHOPVIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SHOPVIA_DB_DSN"
	EnvDBHost = "SHOPVIA_DB_HOST"
	EnvDBUser = "SHOPVIA_DB_USER"
	EnvDBName = "SHOPVIA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	Points       PointsConfig
	Checkout     CheckoutConfig
	Webhook      WebhookConfig
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
	Env          string `envconfig:"SHOPVIA_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPVIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPVIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPVIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPVIA_DB_DSN"`
	Driver string `envconfig:"SHOPVIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPVIA_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPVIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPVIA_DB_USER"`
	LegacyPassword string `envconfig:"SHOPVIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPVIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPVIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPVIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPVIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPVIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPVIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPVIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPVIA_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPVIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPVIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPVIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPVIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPVIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPVIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPVIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPVIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPVIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPVIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"SHOPVIA_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"SHOPVIA_SQUARE_ENV" default:"sandbox"`
	WebhookSecret string `envconfig:"SHOPVIA_SQUARE_WEBHOOK_SECRET"`
	LocationID    string `envconfig:"SHOPVIA_SQUARE_LOCATION_ID"`
	Currency      string `envconfig:"SHOPVIA_SQUARE_CURRENCY" default:"USD"`
	RedirectURL   string `envconfig:"SHOPVIA_SQUARE_REDIRECT_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// PointsConfig carries the rewards policy constants. PointValue is the
// currency amount one point is worth at redemption; EarnDivisor is the
// currency amount that earns one point; RedeemCapPercent caps redemption
// as a fraction of the order total.
type PointsConfig struct {
	PointValue       int64 `envconfig:"SHOPVIA_POINTS_VALUE" default:"1000"`
	EarnDivisor      int64 `envconfig:"SHOPVIA_POINTS_EARN_DIVISOR" default:"10000"`
	RedeemCapPercent int   `envconfig:"SHOPVIA_POINTS_REDEEM_CAP_PERCENT" default:"50"`
}

type CheckoutConfig struct {
	RetryMaxAttempts int           `envconfig:"SHOPVIA_CHECKOUT_RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBackoff     time.Duration `envconfig:"SHOPVIA_CHECKOUT_RETRY_BACKOFF" default:"100ms"`
}

type WebhookConfig struct {
	EventTTL time.Duration `envconfig:"SHOPVIA_WEBHOOK_EVENT_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SHOPVIA_AUTO_MIGRATE" default:"false"`
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
