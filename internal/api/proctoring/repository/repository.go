package proctoringRepository

import (
	"ProctorGolang/internal/entity"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type SQLExecutor interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
	Rebind(query string) string
}

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var sqlExecutor SQLExecutor
	var commitFunc, rollbackFunc func() error

	sqlExecutor = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		sqlExecutor = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Event:    &eventRepository{q: sqlExecutor, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

// EventFilter narrows ListEvents; an empty EventType matches every type.
type EventFilter struct {
	EventType string
	Limit     int
	Offset    int
}

type Client struct {
	Event interface {
		CreateEvent(c context.Context, event *entity.ProctorEvent) error
		GetEventByID(c context.Context, id int64) (entity.ProctorEvent, error)
		ListEvents(c context.Context, filter EventFilter) ([]entity.ProctorEvent, error)
		CountEvents(c context.Context, eventType string) (int64, error)
	}

	Commit   func() error
	Rollback func() error
}

type eventRepository struct {
	q   SQLExecutor
	log *logrus.Logger
}
