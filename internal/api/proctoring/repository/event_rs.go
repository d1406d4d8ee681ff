package proctoringRepository

import (
	"ProctorGolang/internal/api/proctoring"
	"ProctorGolang/internal/entity"
	contextPkg "ProctorGolang/pkg/context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ProctorEventDB struct {
	ID        int64           `db:"id"`
	CreatedAt time.Time       `db:"created_at"`
	EventType sql.NullString  `db:"event_type"`
	Payload   sql.NullString  `db:"payload"`
	RiskScore sql.NullFloat64 `db:"risk_score"`
}

// CreateEvent inserts event and sets its ID. A zero CreatedAt is replaced
// with the current UTC time.
func (r *eventRepository) CreateEvent(c context.Context, event *entity.ProctorEvent) error {
	requestID := contextPkg.GetRequestID(c)

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	argsKV := map[string]interface{}{
		"created_at": event.CreatedAt,
		"event_type": event.EventType,
		"payload":    event.Payload,
		"risk_score": event.RiskScore,
	}

	query, args, err := sqlx.Named(queryCreateEvent, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateEvent")
		return err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).Scan(&event.ID); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"event_type": event.EventType,
			"error":      err.Error(),
		}).Error("Database error when creating event")
		return err
	}

	return nil
}

func (r *eventRepository) GetEventByID(c context.Context, id int64) (entity.ProctorEvent, error) {
	requestID := contextPkg.GetRequestID(c)
	var event ProctorEventDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetEventByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetEventByID named query preparation err")
		return entity.ProctorEvent{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"id":         id,
			}).Warn("GetEventByID no rows found")
			return entity.ProctorEvent{}, proctoring.ErrEventNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetEventByID execution err")
		return entity.ProctorEvent{}, err
	}

	return makeProctorEvent(event), nil
}

func (r *eventRepository) ListEvents(c context.Context, filter EventFilter) ([]entity.ProctorEvent, error) {
	requestID := contextPkg.GetRequestID(c)
	var events []ProctorEventDB

	argsKV := map[string]interface{}{
		"event_type": filter.EventType,
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	}

	query, args, err := sqlx.Named(queryListEvents, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListEvents named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &events, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"event_type": filter.EventType,
			"error":      err.Error(),
		}).Error("ListEvents execution err")
		return nil, err
	}

	result := make([]entity.ProctorEvent, 0, len(events))
	for _, event := range events {
		result = append(result, makeProctorEvent(event))
	}

	return result, nil
}

func (r *eventRepository) CountEvents(c context.Context, eventType string) (int64, error) {
	requestID := contextPkg.GetRequestID(c)
	var total int64

	argsKV := map[string]interface{}{
		"event_type": eventType,
	}

	query, args, err := sqlx.Named(queryCountEvents, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountEvents named query preparation err")
		return 0, err
	}

	query = r.q.Rebind(query)

	if err := r.q.GetContext(c, &total, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountEvents execution err")
		return 0, err
	}

	return total, nil
}

func makeProctorEvent(event ProctorEventDB) entity.ProctorEvent {
	return entity.ProctorEvent{
		ID:        event.ID,
		CreatedAt: event.CreatedAt,
		EventType: event.EventType.String,
		Payload:   event.Payload.String,
		RiskScore: event.RiskScore.Float64,
	}
}
