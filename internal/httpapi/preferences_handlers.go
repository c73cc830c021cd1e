package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"vinosuggest-engine/internal/app"
	"vinosuggest-engine/internal/config"
	"vinosuggest-engine/internal/domain"
	"vinosuggest-engine/internal/events"
	"vinosuggest-engine/internal/rank"
)

type PreferencesHandler struct {
	App *app.App
	Hub *events.Hub
	Cfg func() config.Config
}

type savePreferencesRequest struct {
	Username    string             `json:"username"`
	Preferences domain.Preferences `json:"preferences"`
	MinPrice    *float64           `json:"min_price"`
	MaxPrice    *float64           `json:"max_price"`
}

type recommendationsResponse struct {
	Username        string                `json:"username,omitempty"`
	Preferences     domain.Preferences    `json:"preferences"`
	MinPrice        float64               `json:"min_price"`
	MaxPrice        float64               `json:"max_price"`
	Recommendations []rank.Recommendation `json:"recommendations"`
}

var errBadPriceRange = errors.New("min_price must be >= 0 and not above max_price")

// priceRange fills missing bounds from config defaults.
func priceRange(minPrice, maxPrice *float64, cfg config.Config) (float64, float64, error) {
	lo, hi := cfg.Recommend.DefaultMinPrice, cfg.Recommend.DefaultMaxPrice
	if minPrice != nil {
		lo = *minPrice
	}
	if maxPrice != nil {
		hi = *maxPrice
	}
	if !domain.ValidPriceRange(lo, hi) {
		return 0, 0, errBadPriceRange
	}
	return lo, hi, nil
}

// usernameFromPath splits /preferences/{username}[/{sub}]. The username is
// path-unescaped.
func usernameFromPath(r *http.Request) (user, sub string, ok bool) {
	rest, found := strings.CutPrefix(r.URL.EscapedPath(), "/preferences/")
	if !found || rest == "" {
		return "", "", false
	}
	escUser, sub, _ := strings.Cut(rest, "/")
	user, err := url.PathUnescape(escUser)
	if err != nil || user == "" {
		return "", "", false
	}
	return user, sub, true
}

// Route dispatches /preferences/{username} and its sub-resources.
func (h PreferencesHandler) Route(user, recommendations http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, sub, ok := usernameFromPath(r)
		if !ok {
			WriteError(w, r, http.StatusNotFound, "not_found", "missing username")
			return
		}
		switch sub {
		case "":
			user(w, r)
		case "recommendations":
			recommendations(w, r)
		default:
			WriteError(w, r, http.StatusNotFound, "not_found", "unknown resource")
		}
	}
}

func (h PreferencesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in savePreferencesRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	lo, hi, err := priceRange(in.MinPrice, in.MaxPrice, h.Cfg())
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_price_range", err.Error())
		return
	}

	err = h.App.Store.Save(r.Context(), domain.PreferenceRecord{
		Username:    in.Username,
		Preferences: in.Preferences,
		MinPrice:    lo,
		MaxPrice:    hi,
	})
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	saved, err := h.App.Store.Load(r.Context(), in.Username)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypePreferencesSaved, 1, events.UserEvent{Username: saved.Username}))
	WriteJSON(w, http.StatusCreated, saved)
}

func (h PreferencesHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.App.Store.List(r.Context())
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	users := make([]string, 0, len(recs))
	for _, rec := range recs {
		users = append(users, rec.Username)
	}
	writeJSON(w, map[string]any{"users": users, "count": len(users)})
}

func (h PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, _, _ := usernameFromPath(r)
	rec, err := h.App.Store.Load(r.Context(), user)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	writeJSON(w, rec)
}

func (h PreferencesHandler) Head(w http.ResponseWriter, r *http.Request) {
	user, _, _ := usernameFromPath(r)
	ok, err := h.App.Store.Exists(r.Context(), user)
	switch {
	case err != nil:
		w.WriteHeader(http.StatusInternalServerError)
	case ok:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h PreferencesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _, _ := usernameFromPath(r)
	if err := h.App.Store.Delete(r.Context(), user); err != nil {
		WriteStoreError(w, r, err)
		return
	}

	reqID := RequestIDFrom(r.Context())
	h.Hub.Publish(events.MakeEvent(reqID, events.TypePreferencesDeleted, 1, events.UserEvent{Username: user}))
	writeJSON(w, map[string]any{"ok": true, "username": user})
}

func (h PreferencesHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	user, _, _ := usernameFromPath(r)
	rec, recs, err := h.App.RecommendFor(r.Context(), user)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	writeJSON(w, recommendationsResponse{
		Username:        rec.Username,
		Preferences:     rec.Preferences,
		MinPrice:        rec.MinPrice,
		MaxPrice:        rec.MaxPrice,
		Recommendations: recs,
	})
}
