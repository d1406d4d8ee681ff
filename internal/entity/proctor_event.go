package entity

import "time"

type ProctorEvent struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	EventType string    `db:"event_type" json:"event_type"`
	Payload   string    `db:"payload" json:"payload"`
	RiskScore float64   `db:"risk_score" json:"risk_score"`
}

// Event types derived from frame analysis rather than sent by the client.
const (
	EventFaceMissing      = "face_missing"
	EventMultipleFaces    = "multiple_faces"
	EventSuspiciousObject = "suspicious_object"
	EventGazeAway         = "gaze_away"
	EventGeneric          = "generic"
)
