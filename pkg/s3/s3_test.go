package s3

import (
	"testing"
	"time"
)

func TestEvidenceKey(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("WIB", 7*3600))

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "01HX", "evidence/2024-03-09/01HX.jpg"},
		{"already jpg", "01HX.jpg", "evidence/2024-03-09/01HX.jpg"},
		{"spaces and slashes", "/face missing/", "evidence/2024-03-09/face_missing.jpg"},
		{"empty", "", "evidence/2024-03-09/frame.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvidenceKey(tt.in, at); got != tt.want {
				t.Errorf("EvidenceKey(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
