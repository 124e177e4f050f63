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
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Inventory    InventoryConfig
	Retry        RetryConfig
	Cron         CronConfig
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
	Env          string `envconfig:"MOTORSHOP_APP_ENV" required:"true"`
	Port         string `envconfig:"MOTORSHOP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MOTORSHOP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MOTORSHOP_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"MOTORSHOP_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"MOTORSHOP_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MOTORSHOP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MOTORSHOP_DB_DSN"`
	Driver string `envconfig:"MOTORSHOP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MOTORSHOP_DB_HOST"`
	LegacyPort     int    `envconfig:"MOTORSHOP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MOTORSHOP_DB_USER"`
	LegacyPassword string `envconfig:"MOTORSHOP_DB_PASSWORD"`
	LegacyName     string `envconfig:"MOTORSHOP_DB_NAME"`
	LegacySSLMode  string `envconfig:"MOTORSHOP_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MOTORSHOP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MOTORSHOP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MOTORSHOP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MOTORSHOP_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits for a row lock.
	LockTimeout time.Duration `envconfig:"MOTORSHOP_DB_LOCK_TIMEOUT" default:"3s"`
	// SlowQuery is the duration above which a statement is logged. 0 disables it.
	SlowQuery time.Duration `envconfig:"MOTORSHOP_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the configured driver is the local sqlite file driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MOTORSHOP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MOTORSHOP_REDIS_ADDR"`
	Password     string        `envconfig:"MOTORSHOP_REDIS_PASSWORD"`
	DB           int           `envconfig:"MOTORSHOP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MOTORSHOP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MOTORSHOP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MOTORSHOP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MOTORSHOP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MOTORSHOP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MOTORSHOP_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MOTORSHOP_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MOTORSHOP_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MOTORSHOP_AUTO_MIGRATE" default:"false"`
	Idempotency bool `envconfig:"MOTORSHOP_FEATURE_IDEMPOTENCY" default:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"MOTORSHOP_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"MOTORSHOP_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	WorkOrdersTopic string `envconfig:"MOTORSHOP_PUBSUB_WORK_ORDERS_TOPIC" default:"ms-work-order-events"`
	// InventoryTopic receives part events. Empty routes them to WorkOrdersTopic.
	InventoryTopic string `envconfig:"MOTORSHOP_PUBSUB_INVENTORY_TOPIC"`
}

// PartsTopic returns the topic part events are relayed to.
func (c PubSubConfig) PartsTopic() string {
	if strings.TrimSpace(c.InventoryTopic) != "" {
		return c.InventoryTopic
	}
	return c.WorkOrdersTopic
}

// Topics lists every distinct topic the publisher writes to.
func (c PubSubConfig) Topics() []string {
	topics := []string{c.WorkOrdersTopic}
	if parts := c.PartsTopic(); parts != c.WorkOrdersTopic {
		topics = append(topics, parts)
	}
	return topics
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MOTORSHOP_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MOTORSHOP_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MOTORSHOP_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsPort    int `envconfig:"MOTORSHOP_OUTBOX_METRICS_PORT" default:"9091"`
}

type InventoryConfig struct {
	DefaultReorderThreshold int           `envconfig:"MOTORSHOP_INVENTORY_DEFAULT_REORDER_THRESHOLD" default:"2"`
	LowStockAlertTTL        time.Duration `envconfig:"MOTORSHOP_INVENTORY_LOW_STOCK_ALERT_TTL" default:"24h"`
}

type RetryConfig struct {
	ConflictAttempts  int           `envconfig:"MOTORSHOP_CONFLICT_RETRY_ATTEMPTS" default:"3"`
	ConflictBaseDelay time.Duration `envconfig:"MOTORSHOP_CONFLICT_RETRY_BASE_DELAY" default:"25ms"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"MOTORSHOP_CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"MOTORSHOP_CRON_LOCK_TTL" default:"30m"`
	OutboxRetentionDays int           `envconfig:"MOTORSHOP_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"MOTORSHOP_CRON_DLQ_RETENTION_DAYS" default:"90"`
	JobTimeout          time.Duration `envconfig:"MOTORSHOP_CRON_JOB_TIMEOUT" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
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
