package onnx

import (
	"ProctorGolang/internal/entity"
	"math"
	"sort"
)

// preprocess stretches the frame to size x size with nearest-neighbour
// sampling and writes it CHW, scaled to [0, 1], into dst.
func preprocess(frame *entity.Frame, size int, dst []float32) {
	plane := size * size
	for y := 0; y < size; y++ {
		sy := y * frame.Height / size
		for x := 0; x < size; x++ {
			sx := x * frame.Width / size
			r, g, b := frame.RGB(sx, sy)
			i := y*size + x
			dst[i] = float32(r) / 255
			dst[plane+i] = float32(g) / 255
			dst[2*plane+i] = float32(b) / 255
		}
	}
}

// decode reads a [4+C, N] head (cx, cy, w, h, class scores...) and keeps the
// best class of each prediction above conf, mapped back to frame pixels.
func decode(raw []float32, labels []string, anchors int, conf float32, scaleX, scaleY float64) []entity.Detection {
	classes := len(labels)
	if anchors <= 0 || len(raw) < (4+classes)*anchors {
		return nil
	}

	at := func(row, col int) float32 { return raw[row*anchors+col] }

	var out []entity.Detection
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, conf
		for c := 0; c < classes; c++ {
			if s := at(4+c, i); s >= bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 {
			continue
		}

		cx, cy := float64(at(0, i))*scaleX, float64(at(1, i))*scaleY
		w, h := float64(at(2, i))*scaleX, float64(at(3, i))*scaleY
		det := entity.Detection{
			X:          int(math.Round(cx - w/2)),
			Y:          int(math.Round(cy - h/2)),
			Width:      int(math.Round(w)),
			Height:     int(math.Round(h)),
			Label:      labels[best],
			Confidence: bestScore,
		}
		if det.Width > 0 && det.Height > 0 {
			out = append(out, det)
		}
	}
	return out
}

// nms runs greedy per-label non-maximum suppression and returns the kept
// detections ordered by descending confidence.
func nms(dets []entity.Detection, threshold float32) []entity.Detection {
	sorted := make([]entity.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]entity.Detection, 0, len(sorted))
	for _, d := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.Label == d.Label && iou(k, d) > float64(threshold) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b entity.Detection) float64 {
	inter := a.Rect().Intersect(b.Rect())
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Area()+b.Area()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}
