package config

import (
	"os"
	"path/filepath"
)

const appDirName = "crane"

// defaultDownloadDir resolves the platform download folder (~/Downloads),
// returning an error when the home directory cannot be determined.
func defaultDownloadDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Downloads"), nil
}

// GetCraneDir returns the per-user directory that holds the store, lock
// file, port file, and logs — "~/.crane" by default, overridable via
// CRANE_HOME for tests and packaging.
func GetCraneDir() string {
	if dir := os.Getenv("CRANE_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appDirName)
	}
	return filepath.Join(home, "."+appDirName)
}

// GetLogsDir returns the directory debug logs are written to.
func GetLogsDir() string {
	return filepath.Join(GetCraneDir(), "logs")
}

// GetConfigPath returns the path of the TOML config file.
func GetConfigPath() string {
	return filepath.Join(GetCraneDir(), "config.toml")
}

// GetStorePath returns the path of the SQLite store file.
func GetStorePath() string {
	return filepath.Join(GetCraneDir(), "crane.db")
}

// EnsureDirs creates the crane directory and its logs subdirectory.
func EnsureDirs() error {
	if err := os.MkdirAll(GetCraneDir(), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(GetLogsDir(), 0o755)
}
