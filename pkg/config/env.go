package config

// EnvPrefix namespaces envconfig lookups; the explicit tags are matched as a fallback.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvAppPort   = "STOREFRONT_APP_PORT"
	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"

	EnvRazorpayKeyID     = "STOREFRONT_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "STOREFRONT_RAZORPAY_KEY_SECRET"
	EnvStripeAPIKey      = "STOREFRONT_STRIPE_API_KEY"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
