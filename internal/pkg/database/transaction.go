package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxFunc defines a transaction function
type TxFunc func(ctx context.Context, tx *gorm.DB) error

// Transaction executes fn within a database transaction
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(ctx, tx); err != nil {
			db.logger.WithContext(ctx).Debug("transaction failed, rolling back", zap.Error(err))
			return err
		}
		return nil
	})
}

// TransactionWithRetry re-runs the whole transaction on transient failures
func (db *DB) TransactionWithRetry(ctx context.Context, fn TxFunc) error {
	return db.Retry(ctx, "transaction", func(ctx context.Context) error {
		return db.Transaction(ctx, fn)
	})
}
