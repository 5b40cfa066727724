package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByOwnerAndCurrency(ctx context.Context, ownerID string, currency domain.Currency) (*domain.Account, error)
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error)
	ListAll(ctx context.Context) ([]domain.Account, error)
	// ApplyDelta sets the balance to expected+delta only if the stored balance
	// still equals expected. A negative result fails with
	// domain.ErrInsufficientFunds and nothing is written.
	ApplyDelta(ctx context.Context, number string, delta, expected decimal.Decimal) (*domain.Account, error)
}

type CardStore interface {
	Create(ctx context.Context, card *domain.Card) error
	GetByOwner(ctx context.Context, ownerID string) (*domain.Card, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	ListAll(ctx context.Context) ([]domain.Card, error)
	ApplyDelta(ctx context.Context, id uuid.UUID, delta, expected decimal.Decimal) (*domain.Card, error)
}

type TransactionLog interface {
	// Append assigns ID and CreatedAt when unset, and always assigns Seq.
	Append(ctx context.Context, txn *domain.Transaction) error
	FindPage(ctx context.Context, filter domain.TransactionFilter, page domain.PageRequest) (*domain.TransactionPage, error)
}

type Stores struct {
	Accounts     AccountStore
	Cards        CardStore
	Transactions TransactionLog
}

// UnitOfWork runs fn so that everything written through the Stores it is
// handed commits together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
