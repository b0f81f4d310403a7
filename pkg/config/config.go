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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	APIRateLimit  APIRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	OTP           OTPConfig
	Verification  VerificationConfig
	Razorpay      RazorpayConfig
	R2            R2Config
	Documents     DocumentsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Cron          CronConfig
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
	Env          string `envconfig:"DISHPATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"DISHPATCH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DISHPATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DISHPATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DISHPATCH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DISHPATCH_DB_DSN"`
	Driver string `envconfig:"DISHPATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DISHPATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"DISHPATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DISHPATCH_DB_USER"`
	LegacyPassword string `envconfig:"DISHPATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DISHPATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DISHPATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DISHPATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DISHPATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DISHPATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DISHPATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DISHPATCH_REDIS_ADDR"`
	Password     string        `envconfig:"DISHPATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DISHPATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DISHPATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DISHPATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DISHPATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DISHPATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"DISHPATCH_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"DISHPATCH_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"DISHPATCH_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"DISHPATCH_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"DISHPATCH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"DISHPATCH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"DISHPATCH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"DISHPATCH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"DISHPATCH_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"DISHPATCH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"DISHPATCH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"DISHPATCH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"DISHPATCH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"DISHPATCH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"DISHPATCH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type APIRateLimitConfig struct {
	Window time.Duration `envconfig:"DISHPATCH_API_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int64         `envconfig:"DISHPATCH_API_RATE_LIMIT_LIMIT" default:"300"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"DISHPATCH_AUTO_MIGRATE" default:"false"`
}

// OTPConfig controls delivery OTP lockout behavior.
type OTPConfig struct {
	MaxAttempts  int           `envconfig:"DISHPATCH_OTP_MAX_ATTEMPTS" default:"5"`
	LockDuration time.Duration `envconfig:"DISHPATCH_OTP_LOCK_DURATION" default:"15m"`
}

// VerificationConfig bounds bank/UPI verification usage per store.
type VerificationConfig struct {
	DailyAttemptLimit int           `envconfig:"DISHPATCH_VERIFICATION_DAILY_ATTEMPT_LIMIT" default:"3"`
	ProviderBaseURL   string        `envconfig:"DISHPATCH_VERIFICATION_PROVIDER_BASE_URL"`
	ProviderTimeout   time.Duration `envconfig:"DISHPATCH_VERIFICATION_PROVIDER_TIMEOUT" default:"10s"`
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"DISHPATCH_RAZORPAY_KEY_ID"`
	KeySecret     string `envconfig:"DISHPATCH_RAZORPAY_KEY_SECRET"`
	WebhookSecret string `envconfig:"DISHPATCH_RAZORPAY_WEBHOOK_SECRET"`
}

type R2Config struct {
	AccountID       string        `envconfig:"DISHPATCH_R2_ACCOUNT_ID"`
	AccessKeyID     string        `envconfig:"DISHPATCH_R2_ACCESS_KEY_ID"`
	SecretAccessKey string        `envconfig:"DISHPATCH_R2_SECRET_ACCESS_KEY"`
	Endpoint        string        `envconfig:"DISHPATCH_R2_ENDPOINT"`
	BucketName      string        `envconfig:"DISHPATCH_R2_BUCKET_NAME" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"DISHPATCH_R2_UPLOAD_URL_EXPIRY" default:"15m"`
}

// EndpointURL resolves the S3 endpoint, deriving the Cloudflare account URL
// when an explicit endpoint is not set.
func (r R2Config) EndpointURL() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	if r.AccountID == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
}

type DocumentsConfig struct {
	MaxUploadMB int `envconfig:"DISHPATCH_DOCUMENTS_MAX_UPLOAD_MB" default:"25"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DISHPATCH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DISHPATCH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DISHPATCH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"DISHPATCH_PUBSUB_ORDERS_TOPIC" default:"dp-order-events"`
	NotificationTopic  string `envconfig:"DISHPATCH_PUBSUB_NOTIFICATION_TOPIC" default:"dp-notification-events"`
	BillingTopic       string `envconfig:"DISHPATCH_PUBSUB_BILLING_TOPIC" default:"dp-billing-events"`
	OrdersSubscription string `envconfig:"DISHPATCH_PUBSUB_ORDERS_SUBSCRIPTION"`

	NotificationSubscription string `envconfig:"DISHPATCH_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"DISHPATCH_BIGQUERY_DATASET" default:"dishpatch"`
	OrderFactsTable  string `envconfig:"DISHPATCH_BIGQUERY_ORDER_FACTS_TABLE" default:"order_facts"`
	RevenueRowsTable string `envconfig:"DISHPATCH_BIGQUERY_REVENUE_TABLE" default:"revenue_rows"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"DISHPATCH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"DISHPATCH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"DISHPATCH_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"DISHPATCH_OUTBOX_IDEMPOTENCY_TTL" default:"24h"`
}

type CronConfig struct {
	Interval                 time.Duration `envconfig:"DISHPATCH_CRON_INTERVAL" default:"24h"`
	OutboxRetention          time.Duration `envconfig:"DISHPATCH_CRON_OUTBOX_RETENTION" default:"336h"`
	VerificationLogRetention time.Duration `envconfig:"DISHPATCH_CRON_VERIFICATION_RETENTION" default:"2160h"`
	NotificationRetention    time.Duration `envconfig:"DISHPATCH_CRON_NOTIFICATION_RETENTION" default:"2160h"`
	LockTTL                  time.Duration `envconfig:"DISHPATCH_CRON_LOCK_TTL" default:"10m"`
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
