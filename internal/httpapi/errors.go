package httpapi

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"vinosuggest-engine/internal/logging"
	"vinosuggest-engine/internal/store"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// WriteStoreError maps store sentinels to HTTP statuses. Anything else is a
// 500 and gets logged.
func WriteStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrDuplicateUsername):
		WriteError(w, r, http.StatusConflict, "duplicate_username", err.Error())
	case errors.Is(err, store.ErrEmptyPreferences):
		WriteError(w, r, http.StatusBadRequest, "empty_preferences", err.Error())
	case errors.Is(err, store.ErrEmptyUsername):
		WriteError(w, r, http.StatusBadRequest, "empty_username", err.Error())
	case errors.Is(err, store.ErrMalformedRecord):
		WriteError(w, r, http.StatusInternalServerError, "malformed_record", err.Error())
	default:
		log := logging.With("http")
		log.Error().Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("path", r.URL.Path).Msg("request failed")
		WriteError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
