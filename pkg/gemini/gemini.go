package gemini

import (
	"ProctorGolang/internal/entity"
	"ProctorGolang/pkg/vision"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const detectionPrompt = `You are the vision component of an exam proctoring system.
Inspect the webcam image and answer with JSON only, no prose, using this shape:
{"faces":[{"x":0,"y":0,"width":0,"height":0,"confidence":0.0}],
 "eyes":[{"x":0,"y":0,"width":0,"height":0,"pupil":{"x":0,"y":0}}],
 "objects":["cell phone"]}
Coordinates are integer pixels of the original image with the origin at the top-left.
"objects" lists prohibited items only: phones, books, notes, laptops, tablets, earphones, other people.
Use empty arrays when nothing is found.`

type Encoder func(frame *entity.Frame, quality int) ([]byte, error)

type sceneResponse struct {
	Faces   []entity.Detection `json:"faces"`
	Eyes    []entity.Detection `json:"eyes"`
	Objects []string           `json:"objects"`
}

type geminiDetector struct {
	modelName string
	client    *genai.Client
	encode    Encoder
	log       *logrus.Logger

	mu        sync.Mutex
	lastFrame *entity.Frame
	lastScene *sceneResponse
	closed    bool
}

// NewGeminiDetector returns a Detector that asks a Gemini vision model to
// describe each frame. One model call serves all queries on the same frame.
func NewGeminiDetector(encode Encoder, log *logrus.Logger) (vision.Detector, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiDetector{
		modelName: modelName,
		client:    client,
		encode:    encode,
		log:       log,
	}, nil
}

func (g *geminiDetector) DetectFaces(ctx context.Context, frame *entity.Frame) ([]entity.Detection, error) {
	scene, err := g.describe(ctx, frame)
	if err != nil {
		return nil, err
	}
	return clip(scene.Faces, frame), nil
}

func (g *geminiDetector) DetectEyes(ctx context.Context, frame *entity.Frame, face entity.Detection) ([]entity.Detection, error) {
	scene, err := g.describe(ctx, frame)
	if err != nil {
		return nil, err
	}

	eyes := make([]entity.Detection, 0, len(scene.Eyes))
	for _, e := range clip(scene.Eyes, frame) {
		if face.Contains(e) {
			eyes = append(eyes, e)
		}
	}
	return eyes, nil
}

func (g *geminiDetector) DetectProhibitedItems(ctx context.Context, frame *entity.Frame) ([]string, error) {
	scene, err := g.describe(ctx, frame)
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(scene.Objects))
	for _, o := range scene.Objects {
		labels = append(labels, strings.ToLower(strings.TrimSpace(o)))
	}
	return vision.UniqueLabels(labels), nil
}

func (g *geminiDetector) describe(ctx context.Context, frame *entity.Frame) (*sceneResponse, error) {
	if frame == nil {
		return nil, errors.New("frame is nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, vision.ErrDetectorClosed
	}
	if g.lastFrame == frame {
		return g.lastScene, nil
	}

	imgData, err := g.encode(frame, 85)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"

	img := genai.ImageData("jpeg", imgData)
	res, err := model.GenerateContent(ctx, genai.Text(detectionPrompt), img)
	if err != nil {
		return nil, err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("no response from Gemini API")
	}

	response := res.Candidates[0].Content.Parts[0]
	text, ok := response.(genai.Text)
	if !ok {
		return nil, errors.New("unexpected response format from Gemini API")
	}

	scene, err := parseScene(string(text))
	if err != nil {
		return nil, err
	}

	g.log.WithFields(logrus.Fields{
		"faces":   len(scene.Faces),
		"eyes":    len(scene.Eyes),
		"objects": len(scene.Objects),
	}).Debug("Gemini scene description")

	g.lastFrame, g.lastScene = frame, scene
	return scene, nil
}

// parseScene accepts the model answer with or without a markdown code fence.
func parseScene(text string) (*sceneResponse, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var scene sceneResponse
	if err := jsoniter.UnmarshalFromString(text, &scene); err != nil {
		return nil, fmt.Errorf("invalid scene json from Gemini: %w", err)
	}
	return &scene, nil
}

func (g *geminiDetector) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	g.lastFrame, g.lastScene = nil, nil

	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func clip(dets []entity.Detection, frame *entity.Frame) []entity.Detection {
	out := make([]entity.Detection, 0, len(dets))
	for _, d := range dets {
		if c, ok := d.ClipTo(frame.Width, frame.Height); ok {
			out = append(out, c)
		}
	}
	return out
}
