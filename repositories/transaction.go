package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor runs a function inside a MongoDB multi-document transaction.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithTransaction commits when fn returns nil and aborts otherwise.
// Repositories called with the ctx passed to fn join the transaction.
func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
