package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RedeemCode represents the structure of a redeem code document in MongoDB.
// A code grants premium slots to the first user who redeems it and is
// single-use.
type RedeemCode struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Code         string             `bson:"code" json:"code" index:"unique"`
	SlotsGranted int                `bson:"slotsGranted" json:"slotsGranted"`
	ExpiresAt    *time.Time         `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	UsedBy       *string            `bson:"usedBy,omitempty" json:"usedBy,omitempty"`
	UsedAt       *time.Time         `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	CreatedBy    string             `bson:"createdBy" json:"createdBy"`
}
