package premium

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
)

// Ledger owns the per-user premium slot balance. All slot mutations go
// through it so the SlotCount >= 0 invariant holds everywhere.
type Ledger struct {
	Users databases.UserDatabase
	// Now is overridable for tests, defaults to time.Now
	Now func() time.Time
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Entitlement returns the current premium balance for a user
func (l *Ledger) Entitlement(ctx context.Context, discordID string) (models.UserPremium, error) {
	user, err := l.Users.FindOne(ctx, bson.M{"discordId": discordID})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.UserPremium{}, ErrUserNotFound
		}
		return models.UserPremium{}, err
	}
	return user.Premium, nil
}

// grantAttempts bounds the optimistic retries when concurrent grants race on
// the same expiry window
const grantAttempts = 3

var errGrantContention = errors.New("premium ledger busy, try again")

// GrantSlots adds count slots to the user balance and extends the premium
// window by extensionDays. Extension is additive: it stacks on top of the
// current expiry when that is still in the future, otherwise it counts from
// now. The write is guarded by the expiry read in the same attempt, so two
// concurrent grants cannot both extend from the same base; the loser retries
// against the moved window. Granting also clears the pending expiry reminder
// marker.
func (l *Ledger) GrantSlots(ctx context.Context, discordID string, count, extensionDays int) (models.UserPremium, error) {
	if count < 1 {
		return models.UserPremium{}, &ValidationError{Field: "count", Reason: "must be at least 1"}
	}

	for attempt := 0; attempt < grantAttempts; attempt++ {
		user, err := l.Users.FindOne(ctx, bson.M{"discordId": discordID})
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return models.UserPremium{}, ErrUserNotFound
			}
			return models.UserPremium{}, err
		}

		now := l.now()
		base := now
		if user.Premium.ExpiresAt != nil && user.Premium.ExpiresAt.After(now) {
			base = *user.Premium.ExpiresAt
		}
		newExpiry := base.Add(time.Duration(extensionDays) * 24 * time.Hour)

		filter := bson.M{"discordId": discordID}
		if user.Premium.ExpiresAt != nil {
			filter["premium.expiresAt"] = *user.Premium.ExpiresAt
		} else {
			filter["premium.expiresAt"] = bson.M{"$exists": false}
		}

		res, err := l.Users.UpdateOne(ctx, filter,
			bson.M{
				"$inc":   bson.M{"premium.slotCount": count},
				"$set":   bson.M{"premium.expiresAt": newExpiry},
				"$unset": bson.M{"premium.expiryReminderSentAt": ""},
			},
		)
		if err != nil {
			return models.UserPremium{}, err
		}
		if res.MatchedCount == 0 {
			// a concurrent grant moved the window, retry from fresh state
			continue
		}

		updated := user.Premium
		updated.SlotCount += count
		updated.ExpiresAt = &newExpiry
		updated.ExpiryReminderSentAt = nil
		return updated, nil
	}
	return models.UserPremium{}, errGrantContention
}

// SetSlots is the admin override: it replaces the slot balance outright.
// expiryDays nil keeps the current expiry, zero clears it, positive values
// set the expiry to now plus that many days.
func (l *Ledger) SetSlots(ctx context.Context, discordID string, count int, expiryDays *int) (models.UserPremium, error) {
	if count < 0 {
		return models.UserPremium{}, &ValidationError{Field: "slotCount", Reason: "must not be negative"}
	}

	set := bson.M{"premium.slotCount": count}
	unset := bson.M{}
	if expiryDays != nil {
		if *expiryDays < 0 {
			return models.UserPremium{}, &ValidationError{Field: "expiryDays", Reason: "must not be negative"}
		}
		if *expiryDays == 0 {
			unset["premium.expiresAt"] = ""
		} else {
			set["premium.expiresAt"] = l.now().Add(time.Duration(*expiryDays) * 24 * time.Hour)
		}
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	res, err := l.Users.UpdateOne(ctx, bson.M{"discordId": discordID}, update)
	if err != nil {
		return models.UserPremium{}, err
	}
	if res.MatchedCount == 0 {
		return models.UserPremium{}, ErrUserNotFound
	}

	return l.Entitlement(ctx, discordID)
}
