// Package vision turns raw detector geometry into proctoring signals.
//
// Evaluators in this package are pure functions. The only stateful piece is the
// Detector, whose implementations own model handles or connections and must
// serialize access to them themselves.
package vision

import (
	"ProctorGolang/internal/entity"
	"context"
	"errors"
)

var ErrDetectorClosed = errors.New("detector is closed")

// Detector is the capability boundary between the proctoring pipeline and any
// concrete face/eye/object detector.
type Detector interface {
	DetectFaces(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error)
	// DetectEyes returns eye boxes lying inside face, in frame coordinates.
	DetectEyes(ctx context.Context, frame *entity.Frame, face entity.Detection) ([]entity.Detection, error)
	// DetectProhibitedItems returns the distinct labels of prohibited objects.
	DetectProhibitedItems(ctx context.Context, frame *entity.Frame) ([]string, error)
	Close() error
}

// LargestFace returns the face with the biggest area; ties keep the leftmost.
func LargestFace(faces []entity.Detection) (entity.Detection, bool) {
	if len(faces) == 0 {
		return entity.Detection{}, false
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Area() > best.Area() || (f.Area() == best.Area() && f.X < best.X) {
			best = f
		}
	}
	return best, true
}

// UniqueLabels returns labels deduplicated and sorted.
func UniqueLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sortStrings(out)
	return out
}
