package config

type Config interface {
	EnvConfig
	AuthConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetAccountsFile() string
	GetEnv() string
}

type AuthConfig interface {
	GetClientID() string
	GetAuthTransport() string
	GetBackendCommand() string
}

type mainConfig struct {
	EnvVars
	Auth
}

func New() Config {
	return mainConfig{}
}
