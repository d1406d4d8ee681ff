// Package onnx runs a YOLO-style detection model through onnxruntime and
// exposes it as a vision.Detector.
package onnx

import (
	"ProctorGolang/internal/entity"
	"ProctorGolang/pkg/vision"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Detector owns one onnxruntime session with pre-allocated tensors. All
// inference runs under mu; the detections of the most recent frame are kept
// so the face, eye and object queries for one frame share a single run.
type Detector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	cfg        BundleConfig
	labels     []string
	faces      map[string]struct{}
	eyes       map[string]struct{}
	pupils     map[string]struct{}
	prohibited map[string]struct{}
	log        *logrus.Logger

	mu        sync.Mutex
	lastFrame *entity.Frame
	lastDets  []entity.Detection
	closed    bool
}

// Load initializes the runtime and the session for the bundle in bundleDir.
func Load(bundleDir string, log *logrus.Logger) (*Detector, error) {
	if bundleDir == "" {
		bundleDir = os.Getenv("ONNX_BUNDLE_DIR")
	}
	if bundleDir == "" {
		return nil, errors.New("onnx bundle dir is empty")
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(bundleDir, modelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	cfg, err := loadBundleConfig(filepath.Join(bundleDir, configFile))
	if err != nil {
		return nil, fmt.Errorf("load detector config: %w", err)
	}

	labels, err := loadLabels(filepath.Join(bundleDir, labelsFile))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	for i := range labels {
		labels[i] = strings.ToLower(strings.TrimSpace(labels[i]))
	}

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(labels)), int64(cfg.Anchors)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	log.WithFields(logrus.Fields{
		"model":   modelPath,
		"labels":  len(labels),
		"size":    cfg.InputSize,
		"anchors": cfg.Anchors,
	}).Info("ONNX detector loaded")

	return &Detector{
		session:    session,
		input:      input,
		output:     output,
		cfg:        cfg,
		labels:     labels,
		faces:      toSet(cfg.FaceLabels),
		eyes:       toSet(cfg.EyeLabels),
		pupils:     toSet(cfg.PupilLabels),
		prohibited: toSet(cfg.ProhibitedLabels),
		log:        log,
	}, nil
}

func (d *Detector) DetectFaces(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	dets, err := d.detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	return filterLabels(dets, d.faces), nil
}

func (d *Detector) DetectEyes(ctx context.Context, frame *entity.Frame, face entity.Detection) ([]entity.Detection, error) {
	dets, err := d.detect(ctx, frame)
	if err != nil {
		return nil, err
	}
	return attachPupils(face, filterLabels(dets, d.eyes), filterLabels(dets, d.pupils)), nil
}

func (d *Detector) DetectProhibitedItems(ctx context.Context, frame *entity.Frame) ([]string, error) {
	dets, err := d.detect(ctx, frame)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(dets))
	for _, det := range filterLabels(dets, d.prohibited) {
		labels = append(labels, det.Label)
	}
	return vision.UniqueLabels(labels), nil
}

func (d *Detector) detect(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return nil, errors.New("frame is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, vision.ErrDetectorClosed
	}
	if d.lastFrame == frame {
		return d.lastDets, nil
	}

	preprocess(frame, d.cfg.InputSize, d.input.GetData())
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	scaleX := float64(frame.Width) / float64(d.cfg.InputSize)
	scaleY := float64(frame.Height) / float64(d.cfg.InputSize)
	raw := decode(d.output.GetData(), d.labels, d.cfg.Anchors, d.cfg.Confidence, scaleX, scaleY)

	dets := make([]entity.Detection, 0, len(raw))
	for _, det := range nms(raw, d.cfg.IoU) {
		if c, ok := det.ClipTo(frame.Width, frame.Height); ok {
			dets = append(dets, c)
		}
	}

	d.lastFrame, d.lastDets = frame, dets
	return dets, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.lastFrame, d.lastDets = nil, nil

	var errs []error
	if err := d.session.Destroy(); err != nil {
		errs = append(errs, err)
	}
	if err := d.input.Destroy(); err != nil {
		errs = append(errs, err)
	}
	if err := d.output.Destroy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func filterLabels(dets []entity.Detection, set map[string]struct{}) []entity.Detection {
	out := make([]entity.Detection, 0, len(dets))
	for _, det := range dets {
		if _, ok := set[det.Label]; ok {
			out = append(out, det)
		}
	}
	return out
}

// attachPupils keeps the eyes inside face and gives each the center of the
// most confident pupil inside it. Inputs are ordered by confidence.
func attachPupils(face entity.Detection, eyes, pupils []entity.Detection) []entity.Detection {
	out := make([]entity.Detection, 0, len(eyes))
	for _, eye := range eyes {
		if !face.Contains(eye) {
			continue
		}
		for _, p := range pupils {
			if eye.Contains(p) {
				cx, cy := p.Center()
				eye.Pupil = &entity.Point{X: int(cx), Y: int(cy)}
				break
			}
		}
		out = append(out, eye)
	}
	return out
}
