package events

import (
	"time"

	"github.com/goccy/go-json"
)

const (
	TypePing               = "ping"
	TypePreferencesSaved   = "preferences_saved"
	TypePreferencesDeleted = "preferences_deleted"
	TypeConfigUpdated      = "config_updated"
)

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// UserEvent is the payload of preferences_saved and preferences_deleted.
type UserEvent struct {
	Username string `json:"username"`
}

func MakeEvent(reqID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:      typ,
		Version:   v,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}
