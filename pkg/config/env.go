package config

const (
	// EnvPrefix is empty because every field tag already carries the full variable name.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvPort           = "STOREFRONT_APP_PORT"
	EnvLogLevel       = "STOREFRONT_LOG_LEVEL"
	EnvBackendBaseURL = "STOREFRONT_BACKEND_BASE_URL"
	EnvBackendTimeout = "STOREFRONT_BACKEND_TIMEOUT"
	EnvRedisURL       = "STOREFRONT_REDIS_URL"
	EnvSessionTTL     = "STOREFRONT_SESSION_TTL"
	EnvCORSOrigins    = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvUseSQLite      = "STOREFRONT_USE_SQLITE"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
