package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxFunc is the body of a transaction. It must use the context it is given so
// its reads and writes join the session.
type TxFunc func(ctx context.Context) error

// RunInTransaction runs fn inside a multi-document transaction. On deployments
// that cannot run transactions (a standalone mongod) fn runs without one, so
// every write in fn must be idempotent.
func RunInTransaction(ctx context.Context, client *mongo.Client, fn TxFunc) error {
	session, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsTransactionUnsupportedError(err) {
		log.Printf("MongoDB deployment does not support transactions, running sequentially: %v", err)
		return fn(ctx)
	}
	return err
}

// IsTransactionUnsupportedError matches the IllegalOperation error a standalone server returns for transactions.
func IsTransactionUnsupportedError(err error) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 20 {
		return true
	}
	return strings.Contains(err.Error(), "Transaction numbers are only allowed on a replica set member or mongos")
}
