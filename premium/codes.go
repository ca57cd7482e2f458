package premium

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/databases"
	"github.com/aurabot/dashboard-api/models"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 20

	// maxBatchSize caps the number of codes a single generate call may mint
	maxBatchSize = 100

	// redeemExtensionDays is how far each redeemed code extends the premium
	// window
	redeemExtensionDays = 30
)

// CodeStore owns the redeem code lifecycle: minting, single-use redemption
// and deletion
type CodeStore struct {
	Codes  databases.RedeemCodeDatabase
	Ledger *Ledger
	// Now is overridable for tests, defaults to time.Now
	Now func() time.Time
}

func (s *CodeStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Generate mints quantity fresh codes, each granting slotsGranted premium
// slots. codeExpiryDays zero means the codes never expire. The whole batch is
// inserted in one call so a failed run leaves no partial batch behind.
func (s *CodeStore) Generate(ctx context.Context, createdBy string, slotsGranted, codeExpiryDays, quantity int) ([]models.RedeemCode, error) {
	if quantity < 1 || quantity > maxBatchSize {
		return nil, &ValidationError{Field: "quantity", Reason: "must be between 1 and 100"}
	}
	if slotsGranted < 1 {
		return nil, &ValidationError{Field: "slotsGranted", Reason: "must be at least 1"}
	}
	if codeExpiryDays < 0 {
		return nil, &ValidationError{Field: "codeExpiryDays", Reason: "must not be negative"}
	}

	now := s.now()
	var expiresAt *time.Time
	if codeExpiryDays > 0 {
		t := now.Add(time.Duration(codeExpiryDays) * 24 * time.Hour)
		expiresAt = &t
	}

	codes := make([]models.RedeemCode, 0, quantity)
	for i := 0; i < quantity; i++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}
		codes = append(codes, models.RedeemCode{
			ID:           primitive.NewObjectID(),
			Code:         code,
			SlotsGranted: slotsGranted,
			ExpiresAt:    expiresAt,
			CreatedAt:    now,
			CreatedBy:    createdBy,
		})
	}

	if err := s.Codes.InsertMany(ctx, codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Redeem consumes a code for the given user and grants its slots. Codes are
// single-use: the mark-as-used write is guarded by a usedBy-is-unset filter,
// so of two concurrent redeemers exactly one wins and the loser gets
// ErrCodeAlreadyUsed.
func (s *CodeStore) Redeem(ctx context.Context, rawCode, discordID string) (models.UserPremium, error) {
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	if code == "" {
		return models.UserPremium{}, &ValidationError{Field: "code", Reason: "must not be empty"}
	}

	doc, err := s.Codes.FindOne(ctx, bson.M{"code": code})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.UserPremium{}, ErrCodeNotFound
		}
		return models.UserPremium{}, err
	}
	if doc.UsedBy != nil {
		return models.UserPremium{}, ErrCodeAlreadyUsed
	}
	now := s.now()
	if doc.ExpiresAt != nil && !doc.ExpiresAt.After(now) {
		return models.UserPremium{}, ErrCodeExpired
	}

	res, err := s.Codes.UpdateOne(ctx,
		bson.M{"code": code, "usedBy": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"usedBy": discordID, "usedAt": now}},
	)
	if err != nil {
		return models.UserPremium{}, err
	}
	if res.MatchedCount == 0 {
		// lost the race, someone else consumed it between read and write
		return models.UserPremium{}, ErrCodeAlreadyUsed
	}

	entitlement, err := s.Ledger.GrantSlots(ctx, discordID, doc.SlotsGranted, redeemExtensionDays)
	if err != nil {
		// hand the code back so a failed grant does not burn it
		if _, rerr := s.Codes.UpdateOne(ctx,
			bson.M{"code": code, "usedBy": discordID},
			bson.M{"$unset": bson.M{"usedBy": "", "usedAt": ""}},
		); rerr != nil {
			zap.S().Errorw("failed to release redeem code after grant failure",
				"code", code, "discordId", discordID, "error", rerr)
		}
		return models.UserPremium{}, err
	}
	return entitlement, nil
}

// List returns all codes, newest first left to the caller's find options
func (s *CodeStore) List(ctx context.Context) ([]models.RedeemCode, error) {
	codes, err := s.Codes.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = []models.RedeemCode{}
	}
	return codes, nil
}

// Delete removes a code by its document ID
func (s *CodeStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.Codes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrCodeNotFound
	}
	return nil
}

func randomCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
