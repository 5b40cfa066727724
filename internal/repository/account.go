package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const accountColumns = `account_number, owner_id, currency, label, symbol, balance, version, created_at`

type AccountRepository struct {
	db querier
}

func NewAccountRepository(db querier) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (account_number, owner_id, currency, label, symbol, balance, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		account.AccountNumber, account.OwnerID, account.Currency, account.Label, account.Symbol,
		account.Balance, account.Version,
	)
	if err := row.Scan(&account.CreatedAt); err != nil {
		switch uniqueConstraint(err) {
		case "":
			return fmt.Errorf("Create: %w", err)
		case "accounts_pkey":
			return fmt.Errorf("Create: %w", domain.ErrDuplicateNumber)
		default:
			return fmt.Errorf("Create: %w", domain.ErrAccountExists)
		}
	}
	return nil
}

func (r *AccountRepository) GetByOwnerAndCurrency(ctx context.Context, ownerID string, currency domain.Currency) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 AND currency = $2`,
		ownerID, currency,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOwnerAndCurrency: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetByOwnerAndCurrency: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE account_number = $1`, number,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByNumber: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetByNumber: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	accounts, err := r.list(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 ORDER BY created_at, account_number`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOwner: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) ListAll(ctx context.Context) ([]domain.Account, error) {
	accounts, err := r.list(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at, account_number`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) list(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return accounts, nil
}

// ApplyDelta is a compare-and-set on the balance column. When no row matches
// it looks the account up once more to tell a missing account from a stale
// expected balance.
func (r *AccountRepository) ApplyDelta(ctx context.Context, number string, delta, expected decimal.Decimal) (*domain.Account, error) {
	next := expected.Add(delta)
	if next.IsNegative() {
		return nil, fmt.Errorf("ApplyDelta: %s: %w", number, domain.ErrInsufficientFunds)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET balance = $1, version = version + 1
		WHERE account_number = $2 AND balance = $3
		RETURNING `+accountColumns,
		next, number, expected,
	)
	a, err := scanAccount(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ApplyDelta: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE account_number = $1)`, number,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("ApplyDelta: exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("ApplyDelta: %w", domain.ErrAccountNotFound)
	}
	return nil, fmt.Errorf("ApplyDelta: %s: %w", number, domain.ErrConflict)
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.AccountNumber, &a.OwnerID, &a.Currency, &a.Label, &a.Symbol,
		&a.Balance, &a.Version, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
