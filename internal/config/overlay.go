// config/overlay.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides. VINO_CATALOG accepts a comma-separated list.
const (
	EnvDataDir      = "VINO_DATA_DIR"
	EnvPort         = "VINO_PORT"
	EnvStoreBackend = "VINO_STORE_BACKEND"
	EnvLogLevel     = "VINO_LOG_LEVEL"
	EnvCatalog      = "VINO_CATALOG"
)

// LoadDotEnv reads envFile into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// OverlayEnv applies VINO_* variables on top of cfg.
func OverlayEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.App.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPort)); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		cfg.App.Port = port
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreBackend)); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalog)); v != "" {
		var paths []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		cfg.Catalog.Paths = paths
	}
	return nil
}
