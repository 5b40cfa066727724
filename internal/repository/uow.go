package repository

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/bank-ledger/internal/ledger"
)

// NewStores returns stores bound to the pool; every statement commits on its
// own.
func NewStores(db *DB) ledger.Stores {
	return storesOn(db.pool)
}

func storesOn(q querier) ledger.Stores {
	return ledger.Stores{
		Accounts:     NewAccountRepository(q),
		Cards:        NewCardRepository(q),
		Transactions: NewTransactionRepository(q),
	}
}

type UnitOfWork struct {
	db *DB
}

func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s ledger.Stores) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Do: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, storesOn(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Do: commit: %w", err)
	}
	return nil
}
