package databases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/databases/mocks"
)

func TestGuildDatabase_UpsertFromDiscord(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	var capturedUpdate bson.M
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, bson.M{"guildId": "guild-1"}, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			capturedUpdate = args.Get(2).(bson.M)
		})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "guilds").Return(collectionHelper)

	guildDba := databases.NewGuildDatabase(dbHelper)

	err := guildDba.UpsertFromDiscord(context.Background(), "guild-1", "Test Guild", "icon-hash", "owner-1")
	assert.NoError(t, err)

	set := capturedUpdate["$set"].(bson.M)
	assert.Equal(t, "Test Guild", set["name"])
	assert.Equal(t, "owner-1", set["ownerId"])

	// premium and config are seeded on insert only, refreshes never touch them
	setOnInsert := capturedUpdate["$setOnInsert"].(bson.M)
	assert.Equal(t, bson.M{"active": false}, setOnInsert["premium"])
	assert.Equal(t, false, setOnInsert["botAdded"])
}

func TestGuildDatabase_UpsertBotStatus(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	var capturedUpdate bson.M
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, bson.M{"guildId": "guild-1"}, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			capturedUpdate = args.Get(2).(bson.M)
		})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "guilds").Return(collectionHelper)

	guildDba := databases.NewGuildDatabase(dbHelper)

	err := guildDba.UpsertBotStatus(context.Background(), "guild-1", true, 150)
	assert.NoError(t, err)

	set := capturedUpdate["$set"].(bson.M)
	assert.Equal(t, true, set["botAdded"])
	assert.Equal(t, 150, set["memberCount"])
}

func TestGuildDatabase_UpsertBotStatusSkipsZeroMemberCount(t *testing.T) {

	var dbHelper databases.DatabaseHelper
	var collectionHelper databases.CollectionHelper

	dbHelper = &mocks.DatabaseHelper{}
	collectionHelper = &mocks.CollectionHelper{}

	var capturedUpdate bson.M
	collectionHelper.(*mocks.CollectionHelper).
		On("UpdateOne", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			capturedUpdate = args.Get(2).(bson.M)
		})

	dbHelper.(*mocks.DatabaseHelper).
		On("Collection", "guilds").Return(collectionHelper)

	guildDba := databases.NewGuildDatabase(dbHelper)

	err := guildDba.UpsertBotStatus(context.Background(), "guild-1", false, 0)
	assert.NoError(t, err)

	set := capturedUpdate["$set"].(bson.M)
	assert.NotContains(t, set, "memberCount")
}
