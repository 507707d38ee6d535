package config

// EnvPrefix is the envconfig prefix for all service configuration.
const EnvPrefix = "FABRICSPEAKS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv            = "FABRICSPEAKS_APP_ENV"
	EnvPort              = "FABRICSPEAKS_APP_PORT"
	EnvDBDSN             = "FABRICSPEAKS_DB_DSN"
	EnvDBHost            = "FABRICSPEAKS_DB_HOST"
	EnvDBUser            = "FABRICSPEAKS_DB_USER"
	EnvDBName            = "FABRICSPEAKS_DB_NAME"
	EnvRedisURL          = "FABRICSPEAKS_REDIS_URL"
	EnvJWTSecret         = "FABRICSPEAKS_JWT_SECRET"
	EnvJWTIssuer         = "FABRICSPEAKS_JWT_ISSUER"
	EnvRazorpayKeyID     = "FABRICSPEAKS_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "FABRICSPEAKS_RAZORPAY_KEY_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
