package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "VINAVAX"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "VINAVAX_DB_DSN"
	EnvDBHost = "VINAVAX_DB_HOST"
	EnvDBUser = "VINAVAX_DB_USER"
	EnvDBName = "VINAVAX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
