package httpapi

import (
	"sync/atomic"

	"vinosuggest-engine/internal/app"
	"vinosuggest-engine/internal/config"
	"vinosuggest-engine/internal/events"
)

type Deps struct {
	App *app.App

	Hub *events.Hub

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Nil disables rate limiting.
	Limiter *ClientLimiter
}

func (d Deps) config() config.Config {
	if d.CfgVal != nil {
		if cfg, ok := d.CfgVal.Load().(config.Config); ok {
			return cfg
		}
	}
	return d.App.Config
}
