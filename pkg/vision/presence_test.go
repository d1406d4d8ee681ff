package vision

import (
	"ProctorGolang/internal/entity"
	"testing"
)

func TestEvaluatePresence(t *testing.T) {
	tests := []struct {
		count int
		want  entity.PresenceStatus
	}{
		{0, entity.PresenceFaceMissing},
		{1, entity.PresenceOK},
		{2, entity.PresenceMultipleFaces},
		{3, entity.PresenceMultipleFaces},
		{250, entity.PresenceMultipleFaces},
	}

	for _, tt := range tests {
		if got := EvaluatePresence(tt.count); got != tt.want {
			t.Errorf("EvaluatePresence(%d) = %s, want %s", tt.count, got, tt.want)
		}
	}
}

func TestPresenceSignal(t *testing.T) {
	if got := PresenceSignal(entity.PresenceOK); got != "" {
		t.Errorf("expected no signal for OK, got %q", got)
	}
	if got := PresenceSignal(entity.PresenceFaceMissing); got != entity.EventFaceMissing {
		t.Errorf("expected face_missing, got %q", got)
	}
	if got := PresenceSignal(entity.PresenceMultipleFaces); got != entity.EventMultipleFaces {
		t.Errorf("expected multiple_faces, got %q", got)
	}
}

func TestLargestFace(t *testing.T) {
	if _, ok := LargestFace(nil); ok {
		t.Fatal("expected no face for empty input")
	}

	faces := []entity.Detection{
		{X: 300, Y: 10, Width: 50, Height: 50},
		{X: 10, Y: 10, Width: 80, Height: 80},
		{X: 5, Y: 200, Width: 80, Height: 80},
	}
	got, ok := LargestFace(faces)
	if !ok {
		t.Fatal("expected a face")
	}
	if got.X != 5 || got.Y != 200 {
		t.Errorf("expected leftmost of the largest faces, got %+v", got)
	}
}

func TestUniqueLabels(t *testing.T) {
	got := UniqueLabels([]string{"cell phone", "book", "", "cell phone"})
	if len(got) != 2 || got[0] != "book" || got[1] != "cell phone" {
		t.Errorf("unexpected labels %v", got)
	}
}
