package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents the structure of a user document in MongoDB. Users are
// created on first Discord login and keyed by their Discord snowflake ID.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	DiscordID     string             `bson:"discordId" json:"discordId" index:"unique"`
	Username      string             `bson:"username" json:"username"`
	Discriminator string             `bson:"discriminator,omitempty" json:"discriminator,omitempty"`
	Avatar        string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Email         string             `bson:"email,omitempty" json:"email,omitempty"`
	Premium       UserPremium        `bson:"premium" json:"premium"`
	Billing       UserBilling        `bson:"billing,omitempty" json:"-"`
	// ManageableGuilds holds the guild IDs the user can manage, refreshed on
	// every login from the Discord guild list.
	ManageableGuilds []string  `bson:"manageableGuilds,omitempty" json:"manageableGuilds,omitempty"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	LastLogin        time.Time `bson:"lastLogin" json:"lastLogin"`
}

// UserPremium holds the premium slot balance for a user. SlotCount never goes
// below zero.
type UserPremium struct {
	SlotCount int        `bson:"slotCount" json:"slotCount"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	// ExpiryReminderSentAt tracks the last reminder email for the current
	// premium window so the scheduler does not send duplicates.
	ExpiryReminderSentAt *time.Time `bson:"expiryReminderSentAt,omitempty" json:"-"`
}

// UserBilling holds Stripe billing state for a user
type UserBilling struct {
	StripeCustomerID string `bson:"stripeCustomerId,omitempty"`
	// ProcessedSessions lists checkout session IDs that already granted
	// slots, so verify calls are idempotent.
	ProcessedSessions []string `bson:"processedSessions,omitempty"`
}
