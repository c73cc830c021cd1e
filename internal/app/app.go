// Package app wires config, catalog, store and engine together for the CLI
// and the HTTP engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"vinosuggest-engine/internal/catalog"
	"vinosuggest-engine/internal/config"
	"vinosuggest-engine/internal/domain"
	"vinosuggest-engine/internal/logging"
	"vinosuggest-engine/internal/metrics"
	"vinosuggest-engine/internal/rank"
	"vinosuggest-engine/internal/store"
)

type Options struct {
	// DataDir holds config.yml and relative data paths. Falls back to
	// VINO_DATA_DIR, then ".".
	DataDir string
	// DefaultConfig is copied to DataDir on first run.
	DefaultConfig string
	// EnvFile is loaded before VINO_* overrides are read. Default ".env".
	EnvFile string
	// LogLevel overrides log.level from the config file when set.
	LogLevel string
	// SkipCatalog builds the app without loading wines, for commands that
	// only touch the store.
	SkipCatalog bool
}

type App struct {
	Config  config.Config
	CfgPath string
	Store   *store.PreferenceStore
	Engine  *rank.Engine

	log zerolog.Logger
}

func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = os.Getenv(config.EnvDataDir)
	}
	if dataDir == "" {
		dataDir = "."
	}
	defaultCfg := opts.DefaultConfig
	if defaultCfg == "" {
		defaultCfg = filepath.Join("config", "config.yml")
	}

	cfgPath, err := config.EnsureUserConfig(dataDir, defaultCfg)
	if err != nil {
		return nil, fmt.Errorf("config bootstrap failed: %w", err)
	}
	cfg, err := LoadConfig(cfgPath, dataDir)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logging.Init(logging.Config{Level: level, Format: cfg.Log.Format})
	log := logging.With("app")

	var wines []domain.Wine
	if !opts.SkipCatalog {
		wines, err = catalog.LoadAll(ctx, cfg.CatalogPaths())
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
	}

	st, err := store.OpenBackend(ctx, cfg.Store.Backend, cfg.StorePath())
	if err != nil {
		return nil, err
	}

	log.Debug().Str("config", cfgPath).Str("backend", st.Backend()).
		Str("store", cfg.StorePath()).Int("wines", len(wines)).Msg("engine ready")

	return &App{
		Config:  cfg,
		CfgPath: cfgPath,
		Store:   st,
		Engine:  rank.NewEngine(wines, rank.WithLimit(cfg.Recommend.Limit)),
		log:     log,
	}, nil
}

// LoadConfig reads path, applies VINO_* overrides and validates the result.
// Warnings are logged; errors fail the load. An explicit dataDir wins over
// the file's app.data_dir unless VINO_DATA_DIR is set.
func LoadConfig(path, dataDir string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if dataDir != "" && (cfg.App.DataDir == "" || cfg.App.DataDir == ".") {
		cfg.App.DataDir = dataDir
	}
	if err := config.OverlayEnv(&cfg); err != nil {
		return config.Config{}, err
	}

	cfg, vr := config.NormalizeAndValidate(cfg)
	for _, w := range vr.Warnings {
		logging.Warn().Str("config", path).Msg(w)
	}
	if !vr.OK() {
		return config.Config{}, errors.New(vr.String())
	}
	return cfg, nil
}

func (a *App) Close() error {
	if a == nil || a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// Recommend ranks the catalog for an ad-hoc request.
func (a *App) Recommend(ctx context.Context, req rank.Request) ([]rank.Recommendation, error) {
	start := time.Now()
	recs, err := a.Engine.Recommend(ctx, req)
	if err != nil {
		return nil, err
	}
	metrics.RecordRecommendation(time.Since(start), len(recs))
	a.log.Debug().Strs("keywords", req.Preferences.Keywords()).
		Float64("min_price", req.MinPrice).Float64("max_price", req.MaxPrice).
		Int("results", len(recs)).Dur("took", time.Since(start)).Msg("recommend")
	return recs, nil
}

// RecommendFor loads a user's saved preferences and ranks the catalog with
// them.
func (a *App) RecommendFor(ctx context.Context, username string) (domain.PreferenceRecord, []rank.Recommendation, error) {
	rec, err := a.Store.Load(ctx, username)
	if err != nil {
		return domain.PreferenceRecord{}, nil, err
	}
	recs, err := a.Recommend(ctx, rank.Request{
		Preferences: rec.Preferences,
		MinPrice:    rec.MinPrice,
		MaxPrice:    rec.MaxPrice,
	})
	if err != nil {
		return rec, nil, err
	}
	return rec, recs, nil
}

// RefreshStats updates the store gauges. The serve command runs it on a
// schedule.
func (a *App) RefreshStats(ctx context.Context) error {
	recs, err := a.Store.List(ctx)
	if err != nil {
		return err
	}
	metrics.StoreUsers.Set(float64(len(recs)))
	return nil
}
