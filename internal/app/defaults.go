package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Environment overrides for the default locations.
const (
	envConfigPath = "KV_CONFIG_PATH"
	envHome       = "KV_HOME"
)

// Paths are where kv looks for its config file and keeps its data before a
// config exists. Everything else (log, database, imported files, age
// identity) is laid out under BaseDir by config.NewConfig.
type Paths struct {
	ConfigPath string
	BaseDir    string
}

// DefaultPaths resolves the config file to $KV_CONFIG_PATH or
// ~/.config/kv.toml and the base directory to $KV_HOME or
// ~/.local/share/kv.
func DefaultPaths() (Paths, error) {
	configPath, err := fromEnvOrHome(envConfigPath, ".config", "kv.toml")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := fromEnvOrHome(envHome, ".local", "share", "kv")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// fromEnvOrHome returns the value of env when set, otherwise the home
// directory joined with elem.
func fromEnvOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for %s default: %w", env, err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
