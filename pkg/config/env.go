package config

const (
	EnvPrefix = "SITEBOSS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "SITEBOSS_APP_ENV"
	EnvPort                   = "SITEBOSS_APP_PORT"
	EnvDBDSN                  = "SITEBOSS_DB_DSN"
	EnvDBHost                 = "SITEBOSS_DB_HOST"
	EnvDBUser                 = "SITEBOSS_DB_USER"
	EnvDBName                 = "SITEBOSS_DB_NAME"
	EnvRedisURL               = "SITEBOSS_REDIS_URL"
	EnvJWTSecret              = "SITEBOSS_JWT_SECRET"
	EnvJWTIssuer              = "SITEBOSS_JWT_ISSUER"
	EnvJWTExpMins             = "SITEBOSS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SITEBOSS_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "SITEBOSS_GCP_PROJECT_ID"
	EnvPubSubDomainTopic      = "SITEBOSS_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub        = "SITEBOSS_PUBSUB_DOMAIN_SUBSCRIPTION"
	EnvSagaStaleAfter         = "SITEBOSS_SAGA_STALE_AFTER"
	EnvWorkerAccessCodes      = "SITEBOSS_WORKER_ACCESS_CODES"
	EnvCORSOrigins            = "SITEBOSS_CORS_ORIGINS"
	EnvAutoMigrate            = "SITEBOSS_AUTO_MIGRATE"
)
