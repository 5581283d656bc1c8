package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Identity is either an authenticated user or an anonymous session. At least
// one of the two must be set; when both are set UserID wins for matching.
type Identity struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (id Identity) IsZero() bool {
	return id.UserID == "" && id.SessionID == ""
}

// Key returns the canonical matching key used by impressions and actions.
func (id Identity) Key() string {
	if id.UserID != "" {
		return "user:" + id.UserID
	}
	return "session:" + id.SessionID
}

// RequestContext carries the situational attributes the encoder turns into
// a feature vector. Unknown values are fine; the encoder maps them to a
// reserved bucket instead of failing.
type RequestContext struct {
	Mood      string `json:"mood"`
	Situation string `json:"situation"`
	Goal      string `json:"goal"`
	TimeOfDay string `json:"time_of_day"`
	// ObservedAt anchors every time-derived feature so encoding stays
	// deterministic. Zero means the caller did not pin it.
	ObservedAt time.Time `json:"observed_at"`
}

// Snapshot renders the context as the jsonb map stored on impressions, so
// attribution can re-encode the exact vector the selection saw.
func (rc RequestContext) Snapshot() datatypes.JSONMap {
	m := datatypes.JSONMap{
		"mood":        rc.Mood,
		"situation":   rc.Situation,
		"goal":        rc.Goal,
		"time_of_day": rc.TimeOfDay,
	}
	if !rc.ObservedAt.IsZero() {
		m["observed_at"] = rc.ObservedAt.Format(time.RFC3339Nano)
	}
	return m
}

// RequestContextFromSnapshot rebuilds a context from a stored snapshot.
// Missing or malformed fields come back zero-valued.
func RequestContextFromSnapshot(m datatypes.JSONMap) RequestContext {
	rc := RequestContext{
		Mood:      snapshotString(m, "mood"),
		Situation: snapshotString(m, "situation"),
		Goal:      snapshotString(m, "goal"),
		TimeOfDay: snapshotString(m, "time_of_day"),
	}
	if raw := snapshotString(m, "observed_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rc.ObservedAt = ts
		}
	}
	return rc
}

func snapshotString(m datatypes.JSONMap, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
