package config

// EnvPrefix is the envconfig prefix used for all service variables.
const EnvPrefix = "DISHPATCH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "DISHPATCH_DB_DSN"
	EnvDBHost = "DISHPATCH_DB_HOST"
	EnvDBUser = "DISHPATCH_DB_USER"
	EnvDBName = "DISHPATCH_DB_NAME"
)

// legacyDBEnvVars are required when the single-DSN variable is not set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
