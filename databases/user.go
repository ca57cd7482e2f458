package databases

// go generate: mockery --name UserDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aurabot/dashboard-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.User, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.User, error)
	FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.User, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpsertLogin(ctx context.Context, user models.User) (*models.User, error)
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, filter, opts...).Decode(&user)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (u *userDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.User, error) {
	var users []models.User
	cur, err := u.db.Collection(userName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&users)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (u *userDatabase) FindPaginated(ctx context.Context, filter interface{}, limit, page int) ([]models.User, error) {
	return u.Find(ctx, filter, newMongoPaginate(limit, page).getPaginatedOpts())
}

func (u *userDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return u.db.Collection(userName).CountDocuments(ctx, filter, opts...)
}

func (u *userDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return u.db.Collection(userName).UpdateOne(ctx, filter, update, opts...)
}

// UpsertLogin creates the user document on first login and refreshes the
// Discord profile fields on every subsequent login. The premium sub-document
// is only seeded on insert so existing balances are never clobbered.
func (u *userDatabase) UpsertLogin(ctx context.Context, user models.User) (*models.User, error) {
	now := time.Now()
	upsert := true
	_, err := u.db.Collection(userName).UpdateOne(ctx,
		bson.M{"discordId": user.DiscordID},
		bson.M{
			"$set": bson.M{
				"username":         user.Username,
				"discriminator":    user.Discriminator,
				"avatar":           user.Avatar,
				"email":            user.Email,
				"manageableGuilds": user.ManageableGuilds,
				"lastLogin":        now,
			},
			"$setOnInsert": bson.M{
				"discordId": user.DiscordID,
				"premium":   bson.M{"slotCount": 0},
				"createdAt": now,
			},
		},
		&options.UpdateOptions{Upsert: &upsert},
	)
	if err != nil {
		return nil, err
	}
	return u.FindOne(ctx, bson.M{"discordId": user.DiscordID})
}
