package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux returns the raw mux so the serve command can still attach /shutdown
// (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{App: d.App}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	mux.HandleFunc("/categories", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: CategoriesHandler{}.List,
	}))

	// Preferences
	ph := PreferencesHandler{App: d.App, Hub: d.Hub, Cfg: d.config}
	mux.HandleFunc("/preferences", methodMux(map[string]http.HandlerFunc{
		http.MethodGet:  ph.List,
		http.MethodPost: ph.Create,
	}))
	mux.HandleFunc("/preferences/", ph.Route(
		methodMux(map[string]http.HandlerFunc{
			http.MethodGet:    ph.Get,
			http.MethodHead:   ph.Head,
			http.MethodDelete: ph.Delete,
		}),
		methodMux(map[string]http.HandlerFunc{
			http.MethodGet: ph.Recommendations,
		}),
	))

	rh := RecommendHandler{App: d.App, Cfg: d.config}
	mux.HandleFunc("/recommendations", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: rh.Recommend,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
		Hub:         d.Hub,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// Handler wraps h with the standard middleware stack.
func Handler(h http.Handler, d Deps) http.Handler {
	return Chain(h,
		RequestID,
		AccessLog,
		Recover,
		Cors,
		RateLimit(d.Limiter),
	)
}
