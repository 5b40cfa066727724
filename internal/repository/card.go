package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const cardColumns = `id, owner_id, number, currency, balance, version, cvv_hash, created_at`

type CardRepository struct {
	db querier
}

func NewCardRepository(db querier) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) Create(ctx context.Context, card *domain.Card) error {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO cards (id, owner_id, number, currency, balance, version, cvv_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		card.ID, card.OwnerID, card.Number, card.Currency, card.Balance, card.Version, card.CVVHash,
	)
	if err := row.Scan(&card.CreatedAt); err != nil {
		switch uniqueConstraint(err) {
		case "":
			return fmt.Errorf("Create: %w", err)
		case "cards_number_key":
			return fmt.Errorf("Create: %w", domain.ErrDuplicateNumber)
		default:
			return fmt.Errorf("Create: %w", domain.ErrCardExists)
		}
	}
	return nil
}

func (r *CardRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE owner_id = $1`, ownerID,
	)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByOwner: %w", domain.ErrCardNotFound)
		}
		return nil, fmt.Errorf("GetByOwner: %w", err)
	}
	return c, nil
}

func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE id = $1`, id,
	)
	c, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrCardNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return c, nil
}

func (r *CardRepository) ListAll(ctx context.Context) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM cards ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAll: scan: %w", err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAll: rows: %w", err)
	}
	return cards, nil
}

func (r *CardRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta, expected decimal.Decimal) (*domain.Card, error) {
	next := expected.Add(delta)
	if next.IsNegative() {
		return nil, fmt.Errorf("ApplyDelta: card %s: %w", id, domain.ErrInsufficientFunds)
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE cards SET balance = $1, version = version + 1
		WHERE id = $2 AND balance = $3
		RETURNING `+cardColumns,
		next, id, expected,
	)
	c, err := scanCard(row)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ApplyDelta: %w", err)
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("ApplyDelta: exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("ApplyDelta: %w", domain.ErrCardNotFound)
	}
	return nil, fmt.Errorf("ApplyDelta: card %s: %w", id, domain.ErrConflict)
}

func scanCard(s scanner) (*domain.Card, error) {
	var c domain.Card
	err := s.Scan(
		&c.ID, &c.OwnerID, &c.Number, &c.Currency,
		&c.Balance, &c.Version, &c.CVVHash, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
