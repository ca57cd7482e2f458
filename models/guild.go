package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Guild represents the structure of a guild document in MongoDB. Guilds are
// created the first time they are seen, either through the dashboard login
// guild enumeration or through the bot status ingest.
type Guild struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	GuildID     string             `bson:"guildId" json:"guildId" index:"unique"`
	Name        string             `bson:"name" json:"name"`
	Icon        string             `bson:"icon,omitempty" json:"icon,omitempty"`
	OwnerID     string             `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	MemberCount int                `bson:"memberCount,omitempty" json:"memberCount,omitempty"`
	BotAdded    bool               `bson:"botAdded" json:"botAdded"`
	Premium     GuildPremium       `bson:"premium" json:"premium"`
	Config      GuildConfig        `bson:"config" json:"config"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// GuildPremium holds the premium activation state for a guild. The Active
// flag is advisory, readers must combine it with ExpiresAt (see
// premium.IsEffectivelyPremium) since expiry is lazy.
type GuildPremium struct {
	Active      bool       `bson:"active" json:"active"`
	ExpiresAt   *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	ActivatedBy string     `bson:"activatedBy,omitempty" json:"activatedBy,omitempty"`
}

// GuildConfig holds the per-guild bot configuration editable from the
// dashboard
type GuildConfig struct {
	Prefix              string `bson:"prefix" json:"prefix"`
	Language            string `bson:"language" json:"language"`
	AutomodEnabled      bool   `bson:"automodEnabled" json:"automodEnabled"`
	LoggingEnabled      bool   `bson:"loggingEnabled" json:"loggingEnabled"`
	LogChannelID        string `bson:"logChannelId,omitempty" json:"logChannelId,omitempty"`
	WelcomeEnabled      bool   `bson:"welcomeEnabled" json:"welcomeEnabled"`
	WelcomeChannelID    string `bson:"welcomeChannelId,omitempty" json:"welcomeChannelId,omitempty"`
	WelcomeMessage      string `bson:"welcomeMessage,omitempty" json:"welcomeMessage,omitempty"`
	MusicEnabled        bool   `bson:"musicEnabled" json:"musicEnabled"`
	ModerationEnabled   bool   `bson:"moderationEnabled" json:"moderationEnabled"`
	ModerationChannelID string `bson:"moderationChannelId,omitempty" json:"moderationChannelId,omitempty"`
}

// DefaultGuildConfig returns the config applied when a guild is first created
func DefaultGuildConfig() GuildConfig {
	return GuildConfig{
		Prefix:   "!",
		Language: "en",
	}
}
