package httpapi

import (
	"net/http"

	"vinosuggest-engine/internal/domain"
)

type CategoriesHandler struct{}

func (CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"categories": domain.Categories})
}
