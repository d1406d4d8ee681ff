package onnx

import (
	"ProctorGolang/internal/entity"
	"math"
	"testing"
)

// head builds a [4+C, N] output buffer from per-anchor rows.
func head(classes int, preds [][]float32) []float32 {
	n := len(preds)
	raw := make([]float32, (4+classes)*n)
	for i, p := range preds {
		for row, v := range p {
			raw[row*n+i] = v
		}
	}
	return raw
}

func TestDecode(t *testing.T) {
	labels := []string{"face", "eye", "cell phone"}
	raw := head(len(labels), [][]float32{
		{50, 50, 20, 10, 0.9, 0.1, 0.0},
		{10, 10, 4, 4, 0.1, 0.2, 0.3},
		{100, 80, 40, 20, 0.0, 0.5, 0.6},
		{5, 5, 0, 0, 0.99, 0.0, 0.0},
	})

	got := decode(raw, labels, 4, 0.35, 1, 1)
	if len(got) != 2 {
		t.Fatalf("decode() len = %d, want 2: %+v", len(got), got)
	}

	want := entity.Detection{X: 40, Y: 45, Width: 20, Height: 10, Label: "face", Confidence: 0.9}
	if got[0] != want {
		t.Errorf("decode()[0] = %+v, want %+v", got[0], want)
	}
	if got[1].Label != "cell phone" || got[1].X != 80 || got[1].Y != 70 {
		t.Errorf("decode()[1] = %+v, want cell phone at 80,70", got[1])
	}
}

func TestDecodeScales(t *testing.T) {
	raw := head(1, [][]float32{{320, 320, 64, 64, 0.8}})

	got := decode(raw, []string{"face"}, 1, 0.5, 2, 0.5)
	if len(got) != 1 {
		t.Fatalf("decode() len = %d, want 1", len(got))
	}
	want := entity.Detection{X: 576, Y: 144, Width: 128, Height: 32, Label: "face", Confidence: 0.8}
	if got[0] != want {
		t.Errorf("decode() = %+v, want %+v", got[0], want)
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if got := decode(make([]float32, 3), []string{"face"}, 2, 0.1, 1, 1); got != nil {
		t.Errorf("decode() = %+v, want nil", got)
	}
	if got := decode(nil, []string{"face"}, 0, 0.1, 1, 1); got != nil {
		t.Errorf("decode() = %+v, want nil", got)
	}
}

func TestNMS(t *testing.T) {
	dets := []entity.Detection{
		{X: 0, Y: 0, Width: 10, Height: 10, Label: "face", Confidence: 0.6},
		{X: 1, Y: 1, Width: 10, Height: 10, Label: "face", Confidence: 0.9},
		{X: 1, Y: 1, Width: 10, Height: 10, Label: "eye", Confidence: 0.5},
		{X: 50, Y: 50, Width: 10, Height: 10, Label: "face", Confidence: 0.7},
	}

	got := nms(dets, 0.45)
	if len(got) != 3 {
		t.Fatalf("nms() len = %d, want 3: %+v", len(got), got)
	}
	if got[0].Confidence != 0.9 || got[1].Confidence != 0.7 || got[2].Label != "eye" {
		t.Errorf("nms() order = %+v", got)
	}
}

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b entity.Detection
		want float64
	}{
		{"identical", entity.Detection{Width: 10, Height: 10}, entity.Detection{Width: 10, Height: 10}, 1},
		{"disjoint", entity.Detection{Width: 10, Height: 10}, entity.Detection{X: 20, Width: 10, Height: 10}, 0},
		{"half", entity.Detection{Width: 10, Height: 10}, entity.Detection{X: 5, Width: 10, Height: 10}, 50.0 / 150.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := iou(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("iou() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreprocess(t *testing.T) {
	frame := &entity.Frame{
		Width:    2,
		Height:   1,
		Channels: 3,
		Pix:      []byte{255, 0, 0, 0, 0, 255},
	}

	size := 2
	dst := make([]float32, 3*size*size)
	preprocess(frame, size, dst)

	plane := size * size
	if dst[0] != 1 || dst[plane] != 0 || dst[2*plane] != 0 {
		t.Errorf("left pixel = %v,%v,%v, want red", dst[0], dst[plane], dst[2*plane])
	}
	if dst[1] != 0 || dst[2*plane+1] != 1 {
		t.Errorf("right pixel = %v,%v, want blue", dst[1], dst[2*plane+1])
	}
	if dst[2] != 1 || dst[2*plane+3] != 1 {
		t.Errorf("second row should repeat the first: %v", dst)
	}
}

func TestAttachPupils(t *testing.T) {
	face := entity.Detection{X: 0, Y: 0, Width: 100, Height: 100}
	eyes := []entity.Detection{
		{X: 10, Y: 20, Width: 20, Height: 10, Label: "eye"},
		{X: 60, Y: 20, Width: 20, Height: 10, Label: "eye"},
		{X: 200, Y: 20, Width: 20, Height: 10, Label: "eye"},
	}
	pupils := []entity.Detection{
		{X: 14, Y: 22, Width: 4, Height: 4, Label: "pupil"},
		{X: 20, Y: 22, Width: 4, Height: 4, Label: "pupil"},
	}

	got := attachPupils(face, eyes, pupils)
	if len(got) != 2 {
		t.Fatalf("attachPupils() len = %d, want 2", len(got))
	}
	if got[0].Pupil == nil || *got[0].Pupil != (entity.Point{X: 16, Y: 24}) {
		t.Errorf("first eye pupil = %+v, want 16,24", got[0].Pupil)
	}
	if got[1].Pupil != nil {
		t.Errorf("second eye pupil = %+v, want nil", got[1].Pupil)
	}
	if eyes[0].Pupil != nil {
		t.Error("attachPupils() mutated its input")
	}
}
