package config

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "OSTERIA"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Environment variable names referenced outside envconfig tags (tests, error
// messages).
const (
	EnvAppEnv    = "OSTERIA_APP_ENV"
	EnvPort      = "OSTERIA_APP_PORT"
	EnvAppURL    = "OSTERIA_APP_URL"
	EnvDBDSN     = "OSTERIA_DB_DSN"
	EnvRedisURL  = "OSTERIA_REDIS_URL"
	EnvJWTSecret = "OSTERIA_JWT_SECRET"
)
