package databases

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxnRunner runs a unit of work. The mongo implementation wraps the work in a
// multi-document transaction, the passthrough implementation runs it directly
// for deployments without replica sets. Callers must keep their writes safe
// under the passthrough runner by guarding them with conditional filters.
type TxnRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type mongoTxnRunner struct {
	client ClientHelper
}

// NewTxnRunner returns a TxnRunner backed by mongo sessions
func NewTxnRunner(client ClientHelper) TxnRunner {
	return &mongoTxnRunner{client: client}
}

func (t *mongoTxnRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// PassthroughTxn runs the work without a transaction
type PassthroughTxn struct{}

// WithTransaction implements TxnRunner
func (PassthroughTxn) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
