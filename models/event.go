package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event represents an audit log entry in MongoDB. Every security relevant
// operation (login, redeem, activation, admin override) writes one.
type Event struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"_id,omitempty"`
	Level     string                 `bson:"level" json:"level"`
	Event     string                 `bson:"event" json:"event"`
	UserID    string                 `bson:"userId,omitempty" json:"userId,omitempty"`
	IP        string                 `bson:"ip,omitempty" json:"ip,omitempty"`
	UserAgent string                 `bson:"userAgent,omitempty" json:"userAgent,omitempty"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
}
