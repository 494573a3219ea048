package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName     = "kcaldebt"
	dbFileName     = "kcaldebt.db"
	configFileName = "config.toml"

	EnvHome   = "KCALDEBT_HOME"
	EnvConfig = "KCALDEBT_CONFIG"
)

// DataDir is $KCALDEBT_HOME when set, otherwise <user config dir>/kcaldebt.
func DataDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv(EnvHome)); home != "" {
		return home, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

func DefaultDBPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

func DefaultLogDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

// ConfigPath resolves the config file: explicit flag, then $KCALDEBT_CONFIG, then the data dir.
func ConfigPath(flagValue string) (string, error) {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p, nil
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func EnsureDBDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}
