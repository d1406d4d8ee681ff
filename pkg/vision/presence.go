package vision

import "ProctorGolang/internal/entity"

// EvaluatePresence maps a per-frame face count to a presence status.
// Negative counts are treated as zero.
func EvaluatePresence(faceCount int) entity.PresenceStatus {
	switch {
	case faceCount <= 0:
		return entity.PresenceFaceMissing
	case faceCount == 1:
		return entity.PresenceOK
	default:
		return entity.PresenceMultipleFaces
	}
}

// PresenceSignal returns the event type an anomalous status is recorded
// under, or "" for OK.
func PresenceSignal(status entity.PresenceStatus) string {
	switch status {
	case entity.PresenceFaceMissing:
		return entity.EventFaceMissing
	case entity.PresenceMultipleFaces:
		return entity.EventMultipleFaces
	default:
		return ""
	}
}
