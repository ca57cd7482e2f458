package premium

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/databases"
)

// activationDays is the default premium window for a guild activated by a
// user without a personal expiry
const activationDays = 30

// ActivationResult reports the outcome of a guild activation
type ActivationResult struct {
	GuildID        string
	GuildExpiresAt time.Time
	// SlotCount is the user's remaining balance after spending one slot
	SlotCount int
}

// Activator spends user slots to activate guild premium. The slot decrement
// and the guild flip run inside one transaction, with conditional filters on
// both writes so the workflow also stays consistent under PassthroughTxn.
type Activator struct {
	Users  databases.UserDatabase
	Guilds databases.GuildDatabase
	Txn    databases.TxnRunner
	// Now is overridable for tests, defaults to time.Now
	Now func() time.Time
}

func (a *Activator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Activate spends one of the user's slots on the guild. The guild premium
// window matches the user's own future expiry when there is one, otherwise
// it defaults to 30 days from now.
func (a *Activator) Activate(ctx context.Context, guildID, discordID string) (ActivationResult, error) {
	user, err := a.Users.FindOne(ctx, bson.M{"discordId": discordID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ActivationResult{}, ErrUserNotFound
		}
		return ActivationResult{}, err
	}
	if user.Premium.SlotCount < 1 {
		return ActivationResult{}, ErrNoSlots
	}

	guild, err := a.Guilds.FindOne(ctx, bson.M{"guildId": guildID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ActivationResult{}, ErrGuildNotFound
		}
		return ActivationResult{}, err
	}

	now := a.now()
	if IsEffectivelyPremium(*guild, now) {
		return ActivationResult{}, ErrGuildAlreadyPremium
	}

	expiry := now.Add(activationDays * 24 * time.Hour)
	if user.Premium.ExpiresAt != nil && user.Premium.ExpiresAt.After(now) {
		expiry = *user.Premium.ExpiresAt
	}

	err = a.Txn.WithTransaction(ctx, func(txCtx context.Context) error {
		res, err := a.Users.UpdateOne(txCtx,
			bson.M{"discordId": discordID, "premium.slotCount": bson.M{"$gt": 0}},
			bson.M{"$inc": bson.M{"premium.slotCount": -1}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// balance hit zero since the precondition read
			return ErrNoSlots
		}

		// only a guild without an effective activation may flip, the $or
		// mirrors IsEffectivelyPremium negated
		res, err = a.Guilds.UpdateOne(txCtx,
			bson.M{
				"guildId": guildID,
				"$or": []bson.M{
					{"premium.active": bson.M{"$ne": true}},
					{"premium.expiresAt": bson.M{"$exists": false}},
					{"premium.expiresAt": bson.M{"$lte": now}},
				},
			},
			bson.M{"$set": bson.M{
				"premium.active":      true,
				"premium.expiresAt":   expiry,
				"premium.activatedBy": discordID,
				"updatedAt":           now,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			// another activation won the race, hand the slot back so the
			// passthrough runner leaves no partial state
			if _, rerr := a.Users.UpdateOne(txCtx,
				bson.M{"discordId": discordID},
				bson.M{"$inc": bson.M{"premium.slotCount": 1}},
			); rerr != nil {
				zap.S().Errorw("failed to refund premium slot after lost activation race",
					"discordId", discordID, "guildId", guildID, "error", rerr)
			}
			return ErrGuildAlreadyPremium
		}
		return nil
	})
	if err != nil {
		return ActivationResult{}, err
	}

	// report the post-spend balance from a fresh read, another spend may have
	// landed since the precondition read
	slotCount := user.Premium.SlotCount - 1
	if fresh, rerr := a.Users.FindOne(ctx, bson.M{"discordId": discordID}); rerr == nil {
		slotCount = fresh.Premium.SlotCount
	}

	return ActivationResult{
		GuildID:        guildID,
		GuildExpiresAt: expiry,
		SlotCount:      slotCount,
	}, nil
}

// Deactivate clears the guild premium activation. The spent slot is not
// refunded.
func (a *Activator) Deactivate(ctx context.Context, guildID string) error {
	res, err := a.Guilds.UpdateOne(ctx,
		bson.M{"guildId": guildID},
		bson.M{
			"$set":   bson.M{"premium.active": false, "updatedAt": a.now()},
			"$unset": bson.M{"premium.expiresAt": "", "premium.activatedBy": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrGuildNotFound
	}
	return nil
}
