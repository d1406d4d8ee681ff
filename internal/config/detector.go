package config

import (
	"ProctorGolang/pkg/gemini"
	"ProctorGolang/pkg/onnx"
	"ProctorGolang/pkg/utils"
	"ProctorGolang/pkg/vision"
	websocketPkg "ProctorGolang/pkg/websocket"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DetectorRemote = "remote"
	DetectorONNX   = "onnx"
	DetectorGemini = "gemini"
)

// NewDetector builds the backend named by DETECTOR_BACKEND, "remote" when unset.
func NewDetector(u utils.IUtils, log *logrus.Logger) (vision.Detector, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("DETECTOR_BACKEND")))

	switch backend {
	case "", DetectorRemote:
		return websocketPkg.NewVisionClient(os.Getenv("AI_VISION_URL"), u.EncodeJPEG, log), nil
	case DetectorONNX:
		d, err := onnx.Load(os.Getenv("ONNX_BUNDLE_DIR"), log)
		if err != nil {
			return nil, err
		}
		return d, nil
	case DetectorGemini:
		return gemini.NewGeminiDetector(u.EncodeJPEG, log)
	default:
		return nil, fmt.Errorf("unknown DETECTOR_BACKEND %q", backend)
	}
}
