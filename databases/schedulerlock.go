package databases

// go generate: mockery --name SchedulerLockDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const schedulerLockName = "scheduler_locks"

// SchedulerLockDatabase provides a distributed lease so scheduled jobs run on
// exactly one instance
type SchedulerLockDatabase interface {
	TryAcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, instanceID string) error
}

type schedulerLockDatabase struct {
	db DatabaseHelper
}

// NewSchedulerLockDatabase initializes a new instance of scheduler lock database with the provided db connection
func NewSchedulerLockDatabase(db DatabaseHelper) SchedulerLockDatabase {
	return &schedulerLockDatabase{
		db: db,
	}
}

// TryAcquireLock upserts the lease document keyed by job name. When another
// instance holds an unexpired lease the upsert trips the unique _id and we
// report the lock as taken.
func (s *schedulerLockDatabase) TryAcquireLock(ctx context.Context, name, instanceID string, ttl time.Duration) (bool, error) {
	now := time.Now()
	upsert := true
	_, err := s.db.Collection(schedulerLockName).UpdateOne(ctx,
		bson.M{
			"_id": name,
			"$or": []bson.M{
				{"expiresAt": bson.M{"$lt": now}},
				{"owner": instanceID},
			},
		},
		bson.M{"$set": bson.M{
			"owner":      instanceID,
			"acquiredAt": now,
			"expiresAt":  now.Add(ttl),
		}},
		&options.UpdateOptions{Upsert: &upsert},
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ReleaseLock removes the lease if we still own it
func (s *schedulerLockDatabase) ReleaseLock(ctx context.Context, name, instanceID string) error {
	_, err := s.db.Collection(schedulerLockName).DeleteOne(ctx, bson.M{"_id": name, "owner": instanceID})
	return err
}
