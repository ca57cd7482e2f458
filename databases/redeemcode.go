package databases

// go generate: mockery --name RedeemCodeDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aurabot/dashboard-api/models"
)

const redeemCodeName = "redeem_codes"

// RedeemCodeDatabase contains the methods to use with the redeem code database
type RedeemCodeDatabase interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.RedeemCode, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.RedeemCode, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	InsertMany(ctx context.Context, codes []models.RedeemCode, opts ...*options.InsertManyOptions) error
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type redeemCodeDatabase struct {
	db DatabaseHelper
}

// NewRedeemCodeDatabase initializes a new instance of redeem code database with the provided db connection
func NewRedeemCodeDatabase(db DatabaseHelper) RedeemCodeDatabase {
	return &redeemCodeDatabase{
		db: db,
	}
}

func (c *redeemCodeDatabase) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*models.RedeemCode, error) {
	code := &models.RedeemCode{}
	err := c.db.Collection(redeemCodeName).FindOne(ctx, filter, opts...).Decode(&code)
	if err != nil {
		return nil, err
	}
	return code, nil
}

func (c *redeemCodeDatabase) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]models.RedeemCode, error) {
	var codes []models.RedeemCode
	cur, err := c.db.Collection(redeemCodeName).Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	err = cur.Decode(&codes)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (c *redeemCodeDatabase) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	return c.db.Collection(redeemCodeName).CountDocuments(ctx, filter, opts...)
}

func (c *redeemCodeDatabase) InsertMany(ctx context.Context, codes []models.RedeemCode, opts ...*options.InsertManyOptions) error {
	docs := make([]interface{}, len(codes))
	for i := range codes {
		docs[i] = codes[i]
	}
	return c.db.Collection(redeemCodeName).InsertMany(ctx, docs, opts...)
}

func (c *redeemCodeDatabase) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.db.Collection(redeemCodeName).UpdateOne(ctx, filter, update, opts...)
}

func (c *redeemCodeDatabase) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return c.db.Collection(redeemCodeName).DeleteOne(ctx, filter, opts...)
}
