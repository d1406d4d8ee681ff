package proctoring

type DetectFaceRequest struct {
	Image string `json:"image" validate:"required"`
}

type DetectFaceResponse struct {
	Status    string   `json:"status"`
	FaceCount int      `json:"face_count"`
	Gaze      string   `json:"gaze"`
	Objects   []string `json:"objects"`
	RiskScore float64  `json:"risk_score"`
}

type ListEventsQuery struct {
	Type   string `query:"type" validate:"omitempty,max=50"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type EventResponse struct {
	ID        int64   `json:"id"`
	CreatedAt string  `json:"created_at"`
	EventType string  `json:"event_type"`
	Payload   string  `json:"payload"`
	RiskScore float64 `json:"risk_score"`
}

type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// EventAck is the reply to every message on the event websocket.
type EventAck struct {
	Ack       bool     `json:"ack"`
	ID        int64    `json:"id,omitempty"`
	RiskScore *float64 `json:"risk_score,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type FrameError struct {
	Error string `json:"error"`
}

const (
	DefaultListLimit = 50
	MaxEventTypeLen  = 50
)
