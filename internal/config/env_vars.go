package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar      = "APP_NAME"
	folderEnvVar    = "FOLDER"
	accountsFileVar = "ACCOUNTS_FILE"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "MC Launcher")
}

// GetDataFolder returns the launcher's data directory, where accounts.json
// and backend artifacts live.
func (e EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetAccountsFile returns the path of the shared accounts file. By default it
// sits inside the data folder under the backend CLI's expected name.
func (e EnvVars) GetAccountsFile() string {
	return GetEnv(accountsFileVar, filepath.Join(e.GetDataFolder(), "accounts.json"))
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
