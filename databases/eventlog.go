package databases

// go generate: mockery --name EventDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aurabot/dashboard-api/models"
)

const eventName = "events"

// EventDatabase contains the methods to use with the audit event database
type EventDatabase interface {
	InsertOne(ctx context.Context, event models.Event, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Event, error)
}

type eventDatabase struct {
	db DatabaseHelper
}

// NewEventDatabase initializes a new instance of event database with the provided db connection
func NewEventDatabase(db DatabaseHelper) EventDatabase {
	return &eventDatabase{
		db: db,
	}
}

func (e *eventDatabase) InsertOne(ctx context.Context, event models.Event, opts ...*options.InsertOneOptions) (InsertOneResultHelper, error) {
	return e.db.Collection(eventName).InsertOne(ctx, event, opts...)
}

func (e *eventDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Event, error) {
	var events []models.Event
	cur, err := e.db.Collection(eventName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&events)
	if err != nil {
		return nil, err
	}
	return events, nil
}
