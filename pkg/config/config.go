// Package config reads every Siteboss process setting from SITEBOSS_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Geocode       GeocodeConfig
	Saga          SagaConfig
	Cron          CronConfig
}

// Load parses the environment and rejects combinations that would only
// fail later at runtime. All problems are reported together.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.resolveDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

const minProdSecretLen = 32

func (c *Config) validate() error {
	var errs error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.JWT.ExpirationMinutes > 0, "%s must be positive", EnvJWTExpMins)
	check(!c.App.IsProd() || len(c.JWT.Secret) >= minProdSecretLen,
		"%s must be at least %d bytes in production", EnvJWTSecret, minProdSecretLen)
	check(c.Eventing.IdempotencyLease < c.Eventing.IdempotencyTTL,
		"eventing idempotency lease %s must be shorter than its ttl %s", c.Eventing.IdempotencyLease, c.Eventing.IdempotencyTTL)
	check(c.Outbox.MaxAttempts > 0, "outbox max attempts must be positive")
	check(c.Outbox.BatchSize > 0, "outbox batch size must be positive")
	check(c.Cron.Interval > 0, "cron interval must be positive")
	check(!c.FeatureFlags.AutoMigrate || c.App.IsDev(), "%s is only honoured in dev", EnvAutoMigrate)
	return errs
}

type AppConfig struct {
	Env          string `envconfig:"SITEBOSS_APP_ENV" required:"true"`
	Port         string `envconfig:"SITEBOSS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SITEBOSS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SITEBOSS_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"SITEBOSS_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var out []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type ServiceConfig struct {
	Kind string `envconfig:"SITEBOSS_SERVICE_KIND" default:"api"`

	// MetricsAddr is the listen address for worker /metrics. Empty disables it.
	MetricsAddr string `envconfig:"SITEBOSS_WORKER_METRICS_ADDR"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SITEBOSS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SITEBOSS_REDIS_ADDR"`
	Password     string        `envconfig:"SITEBOSS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SITEBOSS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SITEBOSS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SITEBOSS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SITEBOSS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SITEBOSS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SITEBOSS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SITEBOSS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SITEBOSS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SITEBOSS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SITEBOSS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// PasswordConfig tunes argon2id. The defaults follow the RFC 9106 second
// recommended option.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SITEBOSS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SITEBOSS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SITEBOSS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SITEBOSS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SITEBOSS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow         time.Duration `envconfig:"SITEBOSS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginMobileLimit    int           `envconfig:"SITEBOSS_AUTH_RATE_LIMIT_LOGIN_MOBILE_LIMIT" default:"5"`
	LoginIPLimit        int           `envconfig:"SITEBOSS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow      time.Duration `envconfig:"SITEBOSS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterMobileLimit int           `envconfig:"SITEBOSS_AUTH_RATE_LIMIT_REGISTER_MOBILE_LIMIT" default:"3"`
	RegisterIPLimit     int           `envconfig:"SITEBOSS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite         bool `envconfig:"SITEBOSS_USE_SQLITE" default:"false"`
	AutoMigrate       bool `envconfig:"SITEBOSS_AUTO_MIGRATE" default:"false"`
	WorkerAccessCodes bool `envconfig:"SITEBOSS_WORKER_ACCESS_CODES" default:"true"`
	Realtime          bool `envconfig:"SITEBOSS_REALTIME" default:"true"`
}

// EventingConfig bounds consumer-side deduplication. A handler holding the
// lease longer than IdempotencyLease is assumed dead.
type EventingConfig struct {
	IdempotencyTTL   time.Duration `envconfig:"SITEBOSS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	IdempotencyLease time.Duration `envconfig:"SITEBOSS_EVENTING_IDEMPOTENCY_LEASE" default:"5m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SITEBOSS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SITEBOSS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SITEBOSS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"SITEBOSS_PUBSUB_DOMAIN_TOPIC" default:"sb-domain-events"`
	DomainSubscription string `envconfig:"SITEBOSS_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SITEBOSS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SITEBOSS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SITEBOSS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GeocodeConfig struct {
	BaseURL   string        `envconfig:"SITEBOSS_GEOCODE_BASE_URL" default:"https://nominatim.openstreetmap.org"`
	UserAgent string        `envconfig:"SITEBOSS_GEOCODE_USER_AGENT" default:"siteboss-backend"`
	Timeout   time.Duration `envconfig:"SITEBOSS_GEOCODE_TIMEOUT" default:"5s"`
}

type SagaConfig struct {
	StaleAfter time.Duration `envconfig:"SITEBOSS_SAGA_STALE_AFTER" default:"10m"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"SITEBOSS_CRON_INTERVAL" default:"1m"`
	JobTimeout            time.Duration `envconfig:"SITEBOSS_CRON_JOB_TIMEOUT" default:"2m"`
	NotificationRetention time.Duration `envconfig:"SITEBOSS_NOTIFICATION_RETENTION" default:"720h"`
	OutboxRetention       time.Duration `envconfig:"SITEBOSS_OUTBOX_RETENTION" default:"720h"`
}
