package httpapi

import (
	"net/http"

	"vinosuggest-engine/internal/app"
	"vinosuggest-engine/internal/config"
	"vinosuggest-engine/internal/domain"
	"vinosuggest-engine/internal/rank"
)

type RecommendHandler struct {
	App *app.App
	Cfg func() config.Config
}

type recommendRequest struct {
	Preferences domain.Preferences `json:"preferences"`
	MinPrice    *float64           `json:"min_price"`
	MaxPrice    *float64           `json:"max_price"`
}

// Recommend ranks without saving anything. Blank preferences are allowed and
// rank by points alone.
func (h RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var in recommendRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	lo, hi, err := priceRange(in.MinPrice, in.MaxPrice, h.Cfg())
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_price_range", err.Error())
		return
	}

	prefs := in.Preferences
	if prefs == nil {
		prefs = domain.Preferences{}
	}
	recs, err := h.App.Recommend(r.Context(), rank.Request{Preferences: prefs, MinPrice: lo, MaxPrice: hi})
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	writeJSON(w, recommendationsResponse{
		Preferences:     prefs,
		MinPrice:        lo,
		MaxPrice:        hi,
		Recommendations: recs,
	})
}
