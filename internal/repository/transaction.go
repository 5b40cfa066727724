package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const transactionColumns = `seq, id, owner_id, type, amount, currency, source, destination,
	converted_amount, target_currency, rate, created_at`

type TransactionRepository struct {
	db querier
}

func NewTransactionRepository(db querier) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Append(ctx context.Context, txn *domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (
			id, owner_id, type, amount, currency, source, destination,
			converted_amount, target_currency, rate, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
		RETURNING seq, created_at`,
		txn.ID, txn.OwnerID, txn.Type, txn.Amount, txn.Currency, txn.Source, txn.Destination,
		txn.ConvertedAmount, txn.TargetCurrency, txn.Rate, nullTime(txn),
	)
	if err := row.Scan(&txn.Seq, &txn.CreatedAt); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func nullTime(txn *domain.Transaction) sql.NullTime {
	return sql.NullTime{Time: txn.CreatedAt, Valid: !txn.CreatedAt.IsZero()}
}

// visibleLog limits a read to rows written by transactions that finished
// before every transaction still in flight. That set only grows at its tail
// in (xid, seq) order, so a later page never needs a row an earlier page
// passed over.
const visibleLog = "xid < pg_snapshot_xmin(pg_current_snapshot())"

// FindPage orders by (xid, seq): writer transaction first, then append order
// within it. With a cursor the page starts after the cursor row; otherwise
// the page number becomes an offset.
func (r *TransactionRepository) FindPage(ctx context.Context, filter domain.TransactionFilter, page domain.PageRequest) (*domain.TransactionPage, error) {
	page = page.Normalize()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OwnerID != "" {
		where = append(where, "owner_id = "+arg(filter.OwnerID))
	}
	if filter.Account != "" {
		p := arg(filter.Account)
		where = append(where, "(source = "+p+" OR destination = "+p+")")
	}
	if filter.Card != "" {
		p := arg(filter.Card)
		where = append(where, "(source = "+p+" OR destination = "+p+")")
	}
	where = append(where, visibleLog)
	if page.After > 0 {
		where = append(where, "(xid, seq) > (SELECT c.xid, c.seq FROM transactions c WHERE c.seq = "+arg(page.After)+")")
	}

	var q strings.Builder
	q.WriteString(`SELECT ` + transactionColumns + ` FROM transactions`)
	q.WriteString(" WHERE " + strings.Join(where, " AND "))
	q.WriteString(" ORDER BY xid, seq LIMIT " + arg(page.Size))
	if offset := page.Offset(); offset > 0 {
		q.WriteString(" OFFSET " + arg(offset))
	}

	rows, err := r.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("FindPage: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Transaction, 0, page.Size)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("FindPage: scan: %w", err)
		}
		items = append(items, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindPage: rows: %w", err)
	}

	result := &domain.TransactionPage{Items: items}
	if len(items) == page.Size {
		result.NextCursor = items[len(items)-1].Seq
	}
	return result, nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var (
		t           domain.Transaction
		destination sql.NullString
		converted   decimal.NullDecimal
		target      sql.NullString
		rate        decimal.NullDecimal
	)
	err := s.Scan(
		&t.Seq, &t.ID, &t.OwnerID, &t.Type, &t.Amount, &t.Currency, &t.Source, &destination,
		&converted, &target, &rate, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if destination.Valid {
		t.Destination = &destination.String
	}
	if converted.Valid {
		t.ConvertedAmount = &converted.Decimal
	}
	if target.Valid {
		c := domain.Currency(target.String)
		t.TargetCurrency = &c
	}
	if rate.Valid {
		t.Rate = &rate.Decimal
	}
	return &t, nil
}
