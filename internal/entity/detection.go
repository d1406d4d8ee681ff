package entity

import (
	"image"
	"image/color"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Detection is a bounding box in frame-pixel coordinates. Pupil is only set on
// eye detections when the detector reports one.
type Detection struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Label      string  `json:"label,omitempty"`
	Confidence float32 `json:"confidence,omitempty"`
	Pupil      *Point  `json:"pupil,omitempty"`
}

func (d Detection) Area() int {
	return d.Width * d.Height
}

func (d Detection) Center() (float64, float64) {
	return float64(d.X) + float64(d.Width)/2, float64(d.Y) + float64(d.Height)/2
}

func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}

// Contains reports whether the center of other lies inside d.
func (d Detection) Contains(other Detection) bool {
	cx, cy := other.Center()
	return cx >= float64(d.X) && cx <= float64(d.X+d.Width) &&
		cy >= float64(d.Y) && cy <= float64(d.Y+d.Height)
}

// ClipTo returns d clipped to a w x h frame and false when nothing is left.
func (d Detection) ClipTo(w, h int) (Detection, bool) {
	r := d.Rect().Intersect(image.Rect(0, 0, w, h))
	if r.Empty() {
		return Detection{}, false
	}
	d.X, d.Y, d.Width, d.Height = r.Min.X, r.Min.Y, r.Dx(), r.Dy()
	return d, true
}

// Frame is a decoded RGB pixel buffer, row-major, Channels bytes per pixel.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []byte
}

func NewFrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := &Frame{
		Width:    b.Dx(),
		Height:   b.Dy(),
		Channels: 3,
		Pix:      make([]byte, b.Dx()*b.Dy()*3),
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(bl >> 8)
			i += 3
		}
	}

	return f
}

// RGB returns the pixel at (x, y). Out of range coordinates return black.
func (f *Frame) RGB(x, y int) (uint8, uint8, uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0
	}
	i := (y*f.Width + x) * f.Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

func (f *Frame) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGB(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

type PresenceStatus string

const (
	PresenceFaceMissing   PresenceStatus = "FACE_MISSING"
	PresenceOK            PresenceStatus = "OK"
	PresenceMultipleFaces PresenceStatus = "MULTIPLE_FACES"
)

type GazeDirection string

const (
	GazeLeft    GazeDirection = "left"
	GazeRight   GazeDirection = "right"
	GazeCenter  GazeDirection = "center"
	GazeDown    GazeDirection = "down"
	GazeUnknown GazeDirection = "unknown"
)

type FrameAnalysis struct {
	Status    PresenceStatus `json:"status"`
	FaceCount int            `json:"face_count"`
	Gaze      GazeDirection  `json:"gaze"`
	Objects   []string       `json:"objects"`
	Signals   []string       `json:"signals"`
	RiskScore float64        `json:"risk_score"`
	EventIDs  []int64        `json:"event_ids,omitempty"`
}
