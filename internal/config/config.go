// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port" validate:"min=1,max=65535"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Catalog struct {
		Paths []string `yaml:"paths" json:"paths" validate:"min=1,dive,required"`
	} `yaml:"catalog" json:"catalog"`

	Store struct {
		Backend string `yaml:"backend" json:"backend" validate:"oneof=csv sqlite"`
		Path    string `yaml:"path" json:"path" validate:"required"`
	} `yaml:"store" json:"store"`

	Recommend struct {
		Limit           int     `yaml:"limit" json:"limit" validate:"min=1,max=5"`
		DefaultMinPrice float64 `yaml:"default_min_price" json:"default_min_price" validate:"gte=0"`
		DefaultMaxPrice float64 `yaml:"default_max_price" json:"default_max_price" validate:"gtefield=DefaultMinPrice"`
	} `yaml:"recommend" json:"recommend"`

	RateLimit struct {
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
		Burst             int     `yaml:"burst" json:"burst" validate:"gte=0"`
	} `yaml:"rate_limit" json:"rate_limit"`

	Log struct {
		Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
		Format string `yaml:"format" json:"format" validate:"omitempty,oneof=console json"`
	} `yaml:"log" json:"log"`
}

// Default mirrors config/config.yml. Load starts from it so a partial file
// still yields a usable config.
func Default() Config {
	var cfg Config
	cfg.App.Port = 38472
	cfg.App.DataDir = "."
	cfg.Catalog.Paths = []string{"cleaned_wine_data.csv"}
	cfg.Store.Backend = BackendCSV
	cfg.Store.Path = "user_preferences.csv"
	cfg.Recommend.Limit = 5
	cfg.Recommend.DefaultMinPrice = 0
	cfg.Recommend.DefaultMaxPrice = 5000
	cfg.RateLimit.RequestsPerSecond = 20
	cfg.RateLimit.Burst = 40
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// Resolve returns p unchanged when absolute, otherwise joined to app.data_dir.
func (c Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.App.DataDir, p)
}

func (c Config) CatalogPaths() []string {
	out := make([]string, 0, len(c.Catalog.Paths))
	for _, p := range c.Catalog.Paths {
		out = append(out, c.Resolve(p))
	}
	return out
}

func (c Config) StorePath() string {
	return c.Resolve(c.Store.Path)
}
