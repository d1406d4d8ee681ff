package vision

import (
	"ProctorGolang/internal/entity"
	"sort"
)

// GazeConfig holds the thresholds of the geometric gaze heuristic.
type GazeConfig struct {
	// HorizontalThreshold is the normalized pupil offset beyond which the
	// subject is considered to look left or right.
	HorizontalThreshold float64
	// DownThreshold is the normalized downward pupil offset for "down".
	DownThreshold float64
	// AsymmetryThreshold is the relative eye-width difference that signals a
	// turned head when no pupils are available.
	AsymmetryThreshold float64
	// DownAspect is the mean eye height/width ratio under which the eyes are
	// considered lowered.
	DownAspect float64
}

func DefaultGazeConfig() GazeConfig {
	return GazeConfig{
		HorizontalThreshold: 0.35,
		DownThreshold:       0.4,
		AsymmetryThreshold:  0.3,
		DownAspect:          0.35,
	}
}

type GazeEstimator struct {
	cfg GazeConfig
}

func NewGazeEstimator(cfg GazeConfig) *GazeEstimator {
	return &GazeEstimator{cfg: cfg}
}

var defaultGaze = NewGazeEstimator(DefaultGazeConfig())

// EstimateGaze classifies gaze with the default thresholds.
func EstimateGaze(eyes []entity.Detection) entity.GazeDirection {
	return defaultGaze.Estimate(eyes)
}

// Estimate classifies gaze from the eye detections of a single face.
// Directions are in image coordinates. Fewer than two usable eyes yields
// "unknown"; otherwise the result is never "unknown".
func (g *GazeEstimator) Estimate(eyes []entity.Detection) entity.GazeDirection {
	ordered := orderEyes(eyes)
	if len(ordered) < 2 {
		return entity.GazeUnknown
	}

	left, right := ordered[0], ordered[len(ordered)-1]

	if left.Pupil != nil && right.Pupil != nil {
		return g.fromPupils(left, right)
	}
	return g.fromSockets(left, right)
}

func (g *GazeEstimator) fromPupils(left, right entity.Detection) entity.GazeDirection {
	ldx, ldy := pupilOffset(left)
	rdx, rdy := pupilOffset(right)
	dx := (ldx + rdx) / 2
	dy := (ldy + rdy) / 2

	switch {
	case dy > g.cfg.DownThreshold:
		return entity.GazeDown
	case dx < -g.cfg.HorizontalThreshold:
		return entity.GazeLeft
	case dx > g.cfg.HorizontalThreshold:
		return entity.GazeRight
	default:
		return entity.GazeCenter
	}
}

func (g *GazeEstimator) fromSockets(left, right entity.Detection) entity.GazeDirection {
	lw, rw := float64(left.Width), float64(right.Width)
	aspect := (float64(left.Height)/lw + float64(right.Height)/rw) / 2

	switch {
	case aspect < g.cfg.DownAspect:
		return entity.GazeDown
	case lw < rw*(1-g.cfg.AsymmetryThreshold):
		return entity.GazeLeft
	case rw < lw*(1-g.cfg.AsymmetryThreshold):
		return entity.GazeRight
	default:
		return entity.GazeCenter
	}
}

// pupilOffset returns the pupil position relative to the eye center,
// normalized by the half extents and clamped to [-1, 1].
func pupilOffset(eye entity.Detection) (float64, float64) {
	cx, cy := eye.Center()
	dx := (float64(eye.Pupil.X) - cx) / (float64(eye.Width) / 2)
	dy := (float64(eye.Pupil.Y) - cy) / (float64(eye.Height) / 2)
	return clampUnit(dx), clampUnit(dy)
}

// orderEyes drops degenerate boxes and sorts the rest by x, breaking ties on
// y, width and height so the left/right assignment is reproducible.
func orderEyes(eyes []entity.Detection) []entity.Detection {
	out := make([]entity.Detection, 0, len(eyes))
	for _, e := range eyes {
		if e.Width > 0 && e.Height > 0 {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Width != b.Width {
			return a.Width < b.Width
		}
		return a.Height < b.Height
	})
	return out
}

// GazeSignal returns the event type for a gaze direction that leaves the
// screen, or "".
func GazeSignal(dir entity.GazeDirection) string {
	switch dir {
	case entity.GazeLeft, entity.GazeRight, entity.GazeDown:
		return entity.EventGazeAway
	default:
		return ""
	}
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortStrings(s []string) {
	sort.Strings(s)
}
