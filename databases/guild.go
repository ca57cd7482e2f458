package databases

// go generate: mockery --name GuildDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aurabot/dashboard-api/models"
)

const guildName = "guilds"

// GuildDatabase contains the methods to use with the guild database
type GuildDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Guild, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Guild, error)
	FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.Guild, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpsertFromDiscord(ctx context.Context, guildID, name, icon, ownerID string) error
	UpsertBotStatus(ctx context.Context, guildID string, botAdded bool, memberCount int) error
}

type guildDatabase struct {
	db DatabaseHelper
}

// NewGuildDatabase initializes a new instance of guild database with the provided db connection
func NewGuildDatabase(db DatabaseHelper) GuildDatabase {
	return &guildDatabase{
		db: db,
	}
}

func (g *guildDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.Guild, error) {
	guild := &models.Guild{}
	err := g.db.Collection(guildName).FindOne(ctx, filter, opts...).Decode(&guild)
	if err != nil {
		return nil, err
	}
	return guild, nil
}

func (g *guildDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.Guild, error) {
	var guilds []models.Guild
	cur, err := g.db.Collection(guildName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&guilds)
	if err != nil {
		return nil, err
	}
	return guilds, nil
}

func (g *guildDatabase) FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.Guild, error) {
	return g.Find(ctx, filter, newMongoPaginate(limit, page).getPaginatedOpts())
}

func (g *guildDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return g.db.Collection(guildName).CountDocuments(ctx, filter, opts...)
}

func (g *guildDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return g.db.Collection(guildName).UpdateOne(ctx, filter, update, opts...)
}

func (g *guildDatabase) UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return g.db.Collection(guildName).UpdateMany(ctx, filter, update, opts...)
}

// UpsertFromDiscord creates or refreshes a guild document from the Discord
// guild listing. Premium state and config are only seeded on insert.
func (g *guildDatabase) UpsertFromDiscord(ctx context.Context, guildID, name, icon, ownerID string) error {
	now := time.Now()
	upsert := true
	set := bson.M{
		"name":      name,
		"icon":      icon,
		"updatedAt": now,
	}
	if ownerID != "" {
		set["ownerId"] = ownerID
	}
	_, err := g.db.Collection(guildName).UpdateOne(ctx,
		bson.M{"guildId": guildID},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"guildId":   guildID,
				"botAdded":  false,
				"premium":   bson.M{"active": false},
				"config":    models.DefaultGuildConfig(),
				"createdAt": now,
			},
		},
		&options.UpdateOptions{Upsert: &upsert},
	)
	return err
}

// UpsertBotStatus records whether the bot is present in the guild, reported
// by the bot process itself
func (g *guildDatabase) UpsertBotStatus(ctx context.Context, guildID string, botAdded bool, memberCount int) error {
	now := time.Now()
	upsert := true
	set := bson.M{
		"botAdded":  botAdded,
		"updatedAt": now,
	}
	if memberCount > 0 {
		set["memberCount"] = memberCount
	}
	_, err := g.db.Collection(guildName).UpdateOne(ctx,
		bson.M{"guildId": guildID},
		bson.M{
			"$set": set,
			"$setOnInsert": bson.M{
				"guildId":   guildID,
				"premium":   bson.M{"active": false},
				"config":    models.DefaultGuildConfig(),
				"createdAt": now,
			},
		},
		&options.UpdateOptions{Upsert: &upsert},
	)
	return err
}
