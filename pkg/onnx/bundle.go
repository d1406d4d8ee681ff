package onnx

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	modelFile  = "detector.onnx"
	labelsFile = "label_map.json"
	configFile = "detector.yaml"
)

// BundleConfig is read from detector.yaml next to the model.
type BundleConfig struct {
	InputName        string   `yaml:"input_name"`
	OutputName       string   `yaml:"output_name"`
	InputSize        int      `yaml:"input_size"`
	Anchors          int      `yaml:"anchors"`
	Confidence       float32  `yaml:"confidence"`
	IoU              float32  `yaml:"iou"`
	FaceLabels       []string `yaml:"face_labels"`
	EyeLabels        []string `yaml:"eye_labels"`
	PupilLabels      []string `yaml:"pupil_labels"`
	ProhibitedLabels []string `yaml:"prohibited_labels"`
}

func defaultBundleConfig() BundleConfig {
	return BundleConfig{
		InputName:        "images",
		OutputName:       "output0",
		InputSize:        640,
		Confidence:       0.35,
		IoU:              0.45,
		FaceLabels:       []string{"face"},
		EyeLabels:        []string{"eye"},
		PupilLabels:      []string{"pupil"},
		ProhibitedLabels: []string{"cell phone", "book", "laptop", "remote", "headphones"},
	}
}

func loadBundleConfig(path string) (BundleConfig, error) {
	cfg := defaultBundleConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if cfg.Anchors <= 0 {
		cfg.Anchors = anchorsFor(cfg.InputSize)
	}

	return cfg, nil
}

// anchorsFor returns the prediction count of a three-stride (8/16/32) head.
func anchorsFor(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// resolveSharedLibraryPath prefers ONNXRUNTIME_SHARED_LIBRARY_PATH and
// otherwise probes the bundle and common system locations.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/opt/homebrew/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

func toSet(labels []string) map[string]struct{} {
	out := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		out[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return out
}
