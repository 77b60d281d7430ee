package db

import (
	"encoding/json"
	"time"

	"teanotify/internal/types"
)

// nilIfEmpty converts an empty string to a NULL-able pointer for inserts.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nilIfZeroTime converts a zero time to a NULL-able pointer for inserts.
func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// marshalPayload serializes a payload for a JSONB column. A nil payload is
// stored as an empty object so scans never see NULL.
func marshalPayload(p types.Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// unmarshalPayload deserializes a JSONB column into a payload map.
func unmarshalPayload(raw []byte) (types.Payload, error) {
	if len(raw) == 0 {
		return types.Payload{}, nil
	}
	var p types.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// derefString returns the value of a possibly-NULL text column.
func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
