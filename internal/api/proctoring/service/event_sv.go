package proctoringService

import (
	"ProctorGolang/internal/api/proctoring"
	proctoringRepository "ProctorGolang/internal/api/proctoring/repository"
	"ProctorGolang/internal/entity"
	contextPkg "ProctorGolang/pkg/context"
	"ProctorGolang/pkg/log"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *proctoringService) RecordClientEvent(ctx context.Context, message []byte) (entity.ProctorEvent, error) {
	requestID := contextPkg.GetRequestID(ctx)

	eventType, payload := ParseClientMessage(message)
	event := entity.ProctorEvent{
		CreatedAt: time.Now().UTC(),
		EventType: eventType,
		Payload:   payload,
		RiskScore: s.scorer.ScoreEvent(map[string]any{"type": eventType}),
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.ProctorEvent{}, proctoring.ErrRecordEvent
	}

	if err := repo.Event.CreateEvent(ctx, &event); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"event_type": eventType,
			"error":      err.Error(),
		}).Error("Failed to record client event")
		return entity.ProctorEvent{}, proctoring.ErrRecordEvent
	}

	log.FromContext(s.log, ctx).WithFields(logrus.Fields{
		"id":         event.ID,
		"event_type": event.EventType,
		"risk_score": event.RiskScore,
	}).Info("Client event recorded")

	s.publish(ctx, event)

	return event, nil
}

func (s *proctoringService) ListEvents(ctx context.Context, query proctoring.ListEventsQuery) (proctoring.EventListResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if query.Limit <= 0 {
		query.Limit = proctoring.DefaultListLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return proctoring.EventListResponse{}, proctoring.ErrInternalServerError
	}

	events, err := repo.Event.ListEvents(ctx, proctoringRepository.EventFilter{
		EventType: query.Type,
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	if err != nil {
		return proctoring.EventListResponse{}, proctoring.ErrInternalServerError
	}

	total, err := repo.Event.CountEvents(ctx, query.Type)
	if err != nil {
		return proctoring.EventListResponse{}, proctoring.ErrInternalServerError
	}

	res := proctoring.EventListResponse{
		Events: make([]proctoring.EventResponse, 0, len(events)),
		Total:  total,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	for _, e := range events {
		res.Events = append(res.Events, MakeEventResponse(e))
	}

	return res, nil
}

func (s *proctoringService) GetEvent(ctx context.Context, id int64) (entity.ProctorEvent, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if id <= 0 {
		return entity.ProctorEvent{}, proctoring.ErrInvalidEventID
	}

	repo, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create new client")
		return entity.ProctorEvent{}, proctoring.ErrInternalServerError
	}

	return repo.Event.GetEventByID(ctx, id)
}

func (s *proctoringService) publish(ctx context.Context, event entity.ProctorEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		log.FromContext(s.log, ctx).WithFields(logrus.Fields{
			"id":    event.ID,
			"error": err.Error(),
		}).Warn("Failed to publish event")
	}
}

func MakeEventResponse(e entity.ProctorEvent) proctoring.EventResponse {
	return proctoring.EventResponse{
		ID:        e.ID,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		EventType: e.EventType,
		Payload:   e.Payload,
		RiskScore: e.RiskScore,
	}
}
