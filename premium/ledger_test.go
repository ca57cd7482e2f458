package premium_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/databases/mocks"
	"github.com/aurabot/dashboard-api/models"
	"github.com/aurabot/dashboard-api/premium"
)

func newMockedUserDatabase() (databases.UserDatabase, *mocks.CollectionHelper) {
	db := &mocks.DatabaseHelper{}
	conn := &mocks.CollectionHelper{}
	db.On("Collection", "users").Return(conn)
	return databases.NewUserDatabase(db), conn
}

func TestLedger_GrantSlotsExtendsFutureExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	currentExpiry := now.Add(10 * 24 * time.Hour)

	userDB, conn := newMockedUserDatabase()

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).Premium = models.UserPremium{SlotCount: 2, ExpiresAt: &currentExpiry}
	})
	conn.On("FindOne", mock.Anything, bson.M{"discordId": "user-1"}).Return(singleResultHelper)

	var capturedUpdate bson.M
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			capturedUpdate = args.Get(2).(bson.M)
		})

	ledger := &premium.Ledger{Users: userDB, Now: func() time.Time { return now }}

	ent, err := ledger.GrantSlots(context.Background(), "user-1", 3, 30)
	assert.NoError(t, err)
	assert.Equal(t, 5, ent.SlotCount)
	// extension stacks on top of the unexpired window
	assert.Equal(t, currentExpiry.Add(30*24*time.Hour), *ent.ExpiresAt)
	assert.Nil(t, ent.ExpiryReminderSentAt)

	assert.Equal(t, bson.M{"premium.slotCount": 3}, capturedUpdate["$inc"])
	assert.Equal(t, bson.M{"premium.expiryReminderSentAt": ""}, capturedUpdate["$unset"])
}

func TestLedger_GrantSlotsFromLapsedExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lapsed := now.Add(-5 * 24 * time.Hour)

	userDB, conn := newMockedUserDatabase()

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).Premium = models.UserPremium{SlotCount: 0, ExpiresAt: &lapsed}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)

	ledger := &premium.Ledger{Users: userDB, Now: func() time.Time { return now }}

	ent, err := ledger.GrantSlots(context.Background(), "user-1", 1, 30)
	assert.NoError(t, err)
	assert.Equal(t, 1, ent.SlotCount)
	// lapsed window counts from now, not from the stale expiry
	assert.Equal(t, now.Add(30*24*time.Hour), *ent.ExpiresAt)
}

func TestLedger_GrantSlotsRetriesOnConcurrentExtension(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	firstExpiry := now.Add(10 * 24 * time.Hour)
	movedExpiry := now.Add(40 * 24 * time.Hour)

	userDB, conn := newMockedUserDatabase()

	firstRead := &mocks.SingleResultHelper{}
	firstRead.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).Premium = models.UserPremium{SlotCount: 1, ExpiresAt: &firstExpiry}
	})
	secondRead := &mocks.SingleResultHelper{}
	secondRead.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).Premium = models.UserPremium{SlotCount: 2, ExpiresAt: &movedExpiry}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(firstRead).Once()
	conn.On("FindOne", mock.Anything, mock.Anything).Return(secondRead)

	// a concurrent grant moved the window between the first read and write
	var capturedFilters []bson.M
	capture := func(args mock.Arguments) {
		capturedFilters = append(capturedFilters, args.Get(1).(bson.M))
	}
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil).Once().Run(capture)
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).Run(capture)

	ledger := &premium.Ledger{Users: userDB, Now: func() time.Time { return now }}

	ent, err := ledger.GrantSlots(context.Background(), "user-1", 1, 30)
	assert.NoError(t, err)
	assert.Equal(t, 3, ent.SlotCount)
	// the retry extends the moved window, not the stale one
	assert.Equal(t, movedExpiry.Add(30*24*time.Hour), *ent.ExpiresAt)

	conn.AssertNumberOfCalls(t, "UpdateOne", 2)
	assert.Equal(t, firstExpiry, capturedFilters[0]["premium.expiresAt"])
	assert.Equal(t, movedExpiry, capturedFilters[1]["premium.expiresAt"])
}

func TestLedger_GrantSlotsGivesUpUnderContention(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(10 * 24 * time.Hour)

	userDB, conn := newMockedUserDatabase()

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).Premium = models.UserPremium{SlotCount: 1, ExpiresAt: &expiry}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	ledger := &premium.Ledger{Users: userDB, Now: func() time.Time { return now }}

	_, err := ledger.GrantSlots(context.Background(), "user-1", 1, 30)
	assert.EqualError(t, err, "premium ledger busy, try again")
	conn.AssertNumberOfCalls(t, "UpdateOne", 3)
}

func TestLedger_GrantSlotsValidation(t *testing.T) {
	userDB, _ := newMockedUserDatabase()
	ledger := &premium.Ledger{Users: userDB}

	_, err := ledger.GrantSlots(context.Background(), "user-1", 0, 30)
	assert.True(t, premium.IsValidation(err))
}

func TestLedger_GrantSlotsUserNotFound(t *testing.T) {
	userDB, conn := newMockedUserDatabase()

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)

	ledger := &premium.Ledger{Users: userDB}

	_, err := ledger.GrantSlots(context.Background(), "missing", 1, 30)
	assert.ErrorIs(t, err, premium.ErrUserNotFound)
}

func TestLedger_SetSlotsKeepsExpiryWhenDaysOmitted(t *testing.T) {
	userDB, conn := newMockedUserDatabase()

	var capturedUpdate bson.M
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			capturedUpdate = args.Get(2).(bson.M)
		})

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).DiscordID = "user-1"
		(*arg).Premium = models.UserPremium{SlotCount: 7}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)

	ledger := &premium.Ledger{Users: userDB}

	ent, err := ledger.SetSlots(context.Background(), "user-1", 7, nil)
	assert.NoError(t, err)
	assert.Equal(t, 7, ent.SlotCount)

	set := capturedUpdate["$set"].(bson.M)
	assert.Equal(t, 7, set["premium.slotCount"])
	assert.NotContains(t, set, "premium.expiresAt")
	assert.NotContains(t, capturedUpdate, "$unset")
}

func TestLedger_SetSlotsClearsExpiryOnZeroDays(t *testing.T) {
	userDB, conn := newMockedUserDatabase()

	var capturedUpdate bson.M
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			capturedUpdate = args.Get(2).(bson.M)
		})

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Premium = models.UserPremium{SlotCount: 2}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)

	ledger := &premium.Ledger{Users: userDB}

	zero := 0
	_, err := ledger.SetSlots(context.Background(), "user-1", 2, &zero)
	assert.NoError(t, err)
	assert.Equal(t, bson.M{"premium.expiresAt": ""}, capturedUpdate["$unset"])
}

func TestLedger_SetSlotsSetsExpiryFromDays(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	userDB, conn := newMockedUserDatabase()

	var capturedUpdate bson.M
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil).
		Run(func(args mock.Arguments) {
			capturedUpdate = args.Get(2).(bson.M)
		})

	singleResultHelper := &mocks.SingleResultHelper{}
	singleResultHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Premium = models.UserPremium{SlotCount: 5}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)

	ledger := &premium.Ledger{Users: userDB, Now: func() time.Time { return now }}

	days := 14
	_, err := ledger.SetSlots(context.Background(), "user-1", 5, &days)
	assert.NoError(t, err)

	set := capturedUpdate["$set"].(bson.M)
	assert.Equal(t, now.Add(14*24*time.Hour), set["premium.expiresAt"])
}

func TestLedger_SetSlotsUserNotFound(t *testing.T) {
	userDB, conn := newMockedUserDatabase()
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).
		Return(&mongo.UpdateResult{MatchedCount: 0}, nil)

	ledger := &premium.Ledger{Users: userDB}

	_, err := ledger.SetSlots(context.Background(), "missing", 3, nil)
	assert.ErrorIs(t, err, premium.ErrUserNotFound)
}

func TestLedger_SetSlotsValidation(t *testing.T) {
	userDB, _ := newMockedUserDatabase()
	ledger := &premium.Ledger{Users: userDB}

	_, err := ledger.SetSlots(context.Background(), "user-1", -1, nil)
	assert.True(t, premium.IsValidation(err))

	negative := -3
	_, err = ledger.SetSlots(context.Background(), "user-1", 1, &negative)
	assert.True(t, premium.IsValidation(err))
}
