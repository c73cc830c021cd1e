package httpapi

import (
	"net/http"
	"time"

	"vinosuggest-engine/internal/app"
)

type HealthHandler struct {
	App *app.App
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":      true,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"wines":   h.App.Engine.Len(),
		"backend": h.App.Store.Backend(),
	})
}
