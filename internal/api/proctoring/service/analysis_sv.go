package proctoringService

import (
	"ProctorGolang/internal/api/proctoring"
	"ProctorGolang/internal/entity"
	contextPkg "ProctorGolang/pkg/context"
	"ProctorGolang/pkg/log"
	"ProctorGolang/pkg/vision"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type analysisPayload struct {
	entity.FrameAnalysis
	Evidence string `json:"evidence,omitempty"`
}

// Analyze runs the detector on one frame, reduces the detections to presence,
// gaze and object signals, and records one event per signal.
func (s *proctoringService) Analyze(ctx context.Context, frame *entity.Frame) (entity.FrameAnalysis, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return entity.FrameAnalysis{}, proctoring.ErrInvalidImage
	}
	if s.detector == nil {
		return entity.FrameAnalysis{}, proctoring.ErrDetectorUnavailable
	}

	faces, err := s.detector.DetectFaces(ctx, frame)
	if err != nil {
		return entity.FrameAnalysis{}, s.detectorError(requestID, "detect_faces", err)
	}

	analysis := entity.FrameAnalysis{
		Status:    vision.EvaluatePresence(len(faces)),
		FaceCount: len(faces),
		Gaze:      entity.GazeUnknown,
	}

	if face, ok := vision.LargestFace(faces); ok {
		eyes, err := s.detector.DetectEyes(ctx, frame, face)
		if err != nil {
			return entity.FrameAnalysis{}, s.detectorError(requestID, "detect_eyes", err)
		}
		analysis.Gaze = s.gaze.Estimate(eyes)
	}

	objects, err := s.detector.DetectProhibitedItems(ctx, frame)
	if err != nil {
		return entity.FrameAnalysis{}, s.detectorError(requestID, "detect_prohibited_items", err)
	}
	analysis.Objects = objects
	if analysis.Objects == nil {
		analysis.Objects = []string{}
	}

	analysis.Signals = Signals(analysis)
	analysis.RiskScore = s.scorer.Max(analysis.Signals)

	log.FromContext(s.log, ctx).WithFields(logrus.Fields{
		"status":     analysis.Status,
		"face_count": analysis.FaceCount,
		"gaze":       analysis.Gaze,
		"objects":    analysis.Objects,
		"risk_score": analysis.RiskScore,
	}).Debug("Frame analyzed")

	if len(analysis.Signals) == 0 {
		return analysis, nil
	}

	ids, err := s.recordSignals(ctx, frame, analysis)
	if err != nil {
		return entity.FrameAnalysis{}, err
	}
	analysis.EventIDs = ids

	return analysis, nil
}

// Signals lists the event types a frame analysis raises, in a fixed order.
func Signals(a entity.FrameAnalysis) []string {
	signals := make([]string, 0, 3)
	if sig := vision.PresenceSignal(a.Status); sig != "" {
		signals = append(signals, sig)
	}
	if len(a.Objects) > 0 {
		signals = append(signals, entity.EventSuspiciousObject)
	}
	if sig := vision.GazeSignal(a.Gaze); sig != "" {
		signals = append(signals, sig)
	}
	return signals
}

func (s *proctoringService) recordSignals(ctx context.Context, frame *entity.Frame, analysis entity.FrameAnalysis) ([]int64, error) {
	requestID := contextPkg.GetRequestID(ctx)

	payload, err := jsoniter.MarshalToString(analysisPayload{
		FrameAnalysis: analysis,
		Evidence:      s.uploadEvidence(ctx, frame),
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode analysis payload")
		return nil, proctoring.ErrInternalServerError
	}

	repo, err := s.repository.NewClient(true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return nil, proctoring.ErrRecordEvent
	}

	now := time.Now().UTC()
	events := make([]entity.ProctorEvent, 0, len(analysis.Signals))
	for _, signal := range analysis.Signals {
		event := entity.ProctorEvent{
			CreatedAt: now,
			EventType: signal,
			Payload:   payload,
			RiskScore: s.scorer.ScoreEvent(map[string]any{"type": signal}),
		}
		if err := repo.Event.CreateEvent(ctx, &event); err != nil {
			if rbErr := repo.Rollback(); rbErr != nil {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"error":      rbErr.Error(),
				}).Error("Failed to rollback signal events")
			}
			return nil, proctoring.ErrRecordEvent
		}
		events = append(events, event)
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit signal events")
		return nil, proctoring.ErrRecordEvent
	}

	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
		s.publish(ctx, e)
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"signals":    analysis.Signals,
		"event_ids":  ids,
	}).Info("Frame signals recorded")

	return ids, nil
}

// uploadEvidence stores a JPEG of the frame and returns its location, or ""
// when S3 is not configured or the upload fails.
func (s *proctoringService) uploadEvidence(ctx context.Context, frame *entity.Frame) string {
	if s.evidence == nil || s.utils == nil {
		return ""
	}

	requestID := contextPkg.GetRequestID(ctx)

	jpeg, err := s.utils.EncodeJPEG(frame, 80)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to encode evidence snapshot")
		return ""
	}

	key, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to generate ULID")
		return ""
	}

	location, err := s.evidence.UploadEvidence(ctx, key, jpeg)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to upload evidence snapshot")
		return ""
	}

	return location
}

func (s *proctoringService) detectorError(requestID string, operation string, err error) error {
	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"operation":  operation,
		"error":      err.Error(),
	}).Error("Detector call failed")

	return proctoring.ErrDetectorUnavailable
}
