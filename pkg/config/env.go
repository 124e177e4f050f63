package config

const (
	EnvPrefix = "MOTORSHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:motorshop.db?_busy_timeout=5000"
)

const (
	EnvAppEnv   = "MOTORSHOP_APP_ENV"
	EnvPort     = "MOTORSHOP_APP_PORT"
	EnvLogLevel = "MOTORSHOP_LOG_LEVEL"

	EnvDBDSN         = "MOTORSHOP_DB_DSN"
	EnvDBDriver      = "MOTORSHOP_DB_DRIVER"
	EnvDBHost        = "MOTORSHOP_DB_HOST"
	EnvDBPort        = "MOTORSHOP_DB_PORT"
	EnvDBUser        = "MOTORSHOP_DB_USER"
	EnvDBPassword    = "MOTORSHOP_DB_PASSWORD"
	EnvDBName        = "MOTORSHOP_DB_NAME"
	EnvDBLockTimeout = "MOTORSHOP_DB_LOCK_TIMEOUT"

	EnvRedisURL = "MOTORSHOP_REDIS_URL"

	EnvJWTSecret  = "MOTORSHOP_JWT_SECRET"
	EnvJWTIssuer  = "MOTORSHOP_JWT_ISSUER"
	EnvJWTExpMins = "MOTORSHOP_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID          = "MOTORSHOP_GCP_PROJECT_ID"
	EnvPubSubWorkOrdersTopic = "MOTORSHOP_PUBSUB_WORK_ORDERS_TOPIC"
	EnvPubSubInventoryTopic  = "MOTORSHOP_PUBSUB_INVENTORY_TOPIC"

	EnvConflictRetryAttempts = "MOTORSHOP_CONFLICT_RETRY_ATTEMPTS"
	EnvCronInterval          = "MOTORSHOP_CRON_INTERVAL"
)

// legacyDBEnvVars are required together when no DSN is supplied.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
