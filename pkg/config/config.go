package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	PayPal       PayPalConfig
	SMTP         SMTPConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OSTERIA_APP_ENV" required:"true"`
	Port         string `envconfig:"OSTERIA_APP_PORT" required:"true"`
	URL          string `envconfig:"OSTERIA_APP_URL" default:"http://localhost:5173"`
	LogLevel     string `envconfig:"OSTERIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OSTERIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OSTERIA_DB_DSN"`
	Driver string `envconfig:"OSTERIA_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"OSTERIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OSTERIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OSTERIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OSTERIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) validate() error {
	if db.DSN == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	switch db.Driver {
	case DBDriverPostgres, DBDriverSQLite:
		return nil
	}
	return fmt.Errorf("unsupported db driver %q", db.Driver)
}

type RedisConfig struct {
	URL          string        `envconfig:"OSTERIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OSTERIA_REDIS_ADDR"`
	Password     string        `envconfig:"OSTERIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"OSTERIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OSTERIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OSTERIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OSTERIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OSTERIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OSTERIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"OSTERIA_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"OSTERIA_JWT_ISSUER" default:"osteria"`
}

type PayPalConfig struct {
	ClientID  string        `envconfig:"OSTERIA_PAYPAL_CLIENT_ID"`
	Secret    string        `envconfig:"OSTERIA_PAYPAL_SECRET"`
	APIBase   string        `envconfig:"OSTERIA_PAYPAL_API_BASE" default:"https://api-m.sandbox.paypal.com"`
	Timeout   time.Duration `envconfig:"OSTERIA_PAYPAL_TIMEOUT" default:"15s"`
	WebhookID string        `envconfig:"OSTERIA_PAYPAL_WEBHOOK_ID"`
}

// Configured reports whether checkout can reach the payment provider at all.
func (p PayPalConfig) Configured() bool {
	return p.ClientID != "" && p.Secret != ""
}

type SMTPConfig struct {
	Host     string `envconfig:"OSTERIA_SMTP_HOST"`
	Port     int    `envconfig:"OSTERIA_SMTP_PORT" default:"587"`
	Username string `envconfig:"OSTERIA_SMTP_USERNAME"`
	Password string `envconfig:"OSTERIA_SMTP_PASSWORD"`
	From     string `envconfig:"OSTERIA_SMTP_FROM"`
}

// Configured reports whether outbound mail can be sent.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Username != "" && s.Password != "" && s.From != ""
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"OSTERIA_CRON_INTERVAL" default:"1h"`
	PendingRetention time.Duration `envconfig:"OSTERIA_CRON_PENDING_RETENTION" default:"24h"`
	LockKey          string        `envconfig:"OSTERIA_CRON_LOCK_KEY" default:"osteria:cron:lock"`
	LockTTL          time.Duration `envconfig:"OSTERIA_CRON_LOCK_TTL" default:"50m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"OSTERIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"OSTERIA_AUTO_MIGRATE" default:"false"`
}
