package proctoringService

import (
	"ProctorGolang/internal/api/proctoring"
	"ProctorGolang/internal/entity"
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

// ParseClientMessage derives the event type of a raw client message. A JSON
// object with a "type" key yields that value (strings as-is, other scalars as
// their JSON text); anything else yields "generic". The type is cut to 50
// runes. The payload is always the message itself.
func ParseClientMessage(message []byte) (eventType string, payload string) {
	return clientEventType(message), string(message)
}

func clientEventType(message []byte) string {
	var fields map[string]jsoniter.RawMessage
	if err := jsoniter.Unmarshal(message, &fields); err != nil || fields == nil {
		return entity.EventGeneric
	}

	raw, ok := fields["type"]
	if !ok {
		return entity.EventGeneric
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return entity.EventGeneric
	}

	value := string(raw)
	if raw[0] == '"' {
		if err := jsoniter.Unmarshal(raw, &value); err != nil {
			return entity.EventGeneric
		}
	}
	if value == "" {
		return entity.EventGeneric
	}

	return TruncateRunes(value, proctoring.MaxEventTypeLen)
}

func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
