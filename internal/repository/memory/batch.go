package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// batch holds the writes of one Do call. accountBase and cardBase record the
// committed version each updated record had when the batch first touched it.
type batch struct {
	s *Store

	accounts        map[string]*domain.Account
	accountsCreated []string
	accountBase     map[string]int64

	cards        map[uuid.UUID]*domain.Card
	cardsCreated []uuid.UUID
	cardBase     map[uuid.UUID]int64

	txns []*domain.Transaction
}

func newBatch(s *Store) *batch {
	return &batch{
		s:           s,
		accounts:    make(map[string]*domain.Account),
		accountBase: make(map[string]int64),
		cards:       make(map[uuid.UUID]*domain.Card),
		cardBase:    make(map[uuid.UUID]int64),
	}
}

func (b *batch) stores() ledger.Stores {
	return ledger.Stores{
		Accounts:     batchAccounts{b},
		Cards:        batchCards{b},
		Transactions: batchTransactions{b},
	}
}

type batchAccounts struct{ b *batch }

func (r batchAccounts) Create(ctx context.Context, account *domain.Account) error {
	b := r.b
	if _, ok := b.accounts[account.AccountNumber]; ok {
		return fmt.Errorf("Create: %w", domain.ErrDuplicateNumber)
	}
	if _, ok := b.s.account(account.AccountNumber); ok {
		return fmt.Errorf("Create: %w", domain.ErrDuplicateNumber)
	}
	if _, err := r.GetByOwnerAndCurrency(ctx, account.OwnerID, account.Currency); err == nil {
		return fmt.Errorf("Create: %w", domain.ErrAccountExists)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = b.s.now()
	}

	staged := *account
	b.accounts[account.AccountNumber] = &staged
	b.accountsCreated = append(b.accountsCreated, account.AccountNumber)
	return nil
}

func (r batchAccounts) GetByOwnerAndCurrency(ctx context.Context, ownerID string, currency domain.Currency) (*domain.Account, error) {
	for _, number := range r.b.accountsCreated {
		a := r.b.accounts[number]
		if a.OwnerID == ownerID && a.Currency == currency {
			out := *a
			return &out, nil
		}
	}
	a, ok := r.b.s.accountByOwner(ownerID, currency)
	if !ok {
		return nil, fmt.Errorf("GetByOwnerAndCurrency: %w", domain.ErrAccountNotFound)
	}
	return r.overlay(a), nil
}

func (r batchAccounts) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	if a, ok := r.b.accounts[number]; ok {
		out := *a
		return &out, nil
	}
	a, ok := r.b.s.account(number)
	if !ok {
		return nil, fmt.Errorf("GetByNumber: %w", domain.ErrAccountNotFound)
	}
	return &a, nil
}

func (r batchAccounts) ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	return r.list(func(a *domain.Account) bool { return a.OwnerID == ownerID }), nil
}

func (r batchAccounts) ListAll(ctx context.Context) ([]domain.Account, error) {
	return r.list(func(*domain.Account) bool { return true }), nil
}

func (r batchAccounts) list(keep func(*domain.Account) bool) []domain.Account {
	out := r.b.s.listAccounts(keep)
	for i := range out {
		out[i] = *r.overlay(out[i])
	}
	for _, number := range r.b.accountsCreated {
		if a := r.b.accounts[number]; keep(a) {
			out = append(out, *a)
		}
	}
	return out
}

// overlay returns the staged copy of a committed account if the batch has
// changed it.
func (r batchAccounts) overlay(a domain.Account) *domain.Account {
	if staged, ok := r.b.accounts[a.AccountNumber]; ok {
		out := *staged
		return &out
	}
	return &a
}

func (r batchAccounts) ApplyDelta(ctx context.Context, number string, delta, expected decimal.Decimal) (*domain.Account, error) {
	b := r.b
	current, staged := b.accounts[number]
	if !staged {
		committed, ok := b.s.account(number)
		if !ok {
			return nil, fmt.Errorf("ApplyDelta: %w", domain.ErrAccountNotFound)
		}
		current = &committed
	}
	if !current.Balance.Equal(expected) {
		return nil, fmt.Errorf("ApplyDelta: %s: %w", number, domain.ErrConflict)
	}
	next := expected.Add(delta)
	if next.IsNegative() {
		return nil, fmt.Errorf("ApplyDelta: %s: %w", number, domain.ErrInsufficientFunds)
	}

	if !staged {
		b.accountBase[number] = current.Version
	}
	updated := *current
	updated.Balance = next
	updated.Version++
	b.accounts[number] = &updated

	out := updated
	return &out, nil
}

type batchCards struct{ b *batch }

func (r batchCards) Create(ctx context.Context, card *domain.Card) error {
	b := r.b
	if _, err := r.GetByOwner(ctx, card.OwnerID); err == nil {
		return fmt.Errorf("Create: %w", domain.ErrCardExists)
	}
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = b.s.now()
	}

	staged := *card
	b.cards[card.ID] = &staged
	b.cardsCreated = append(b.cardsCreated, card.ID)
	return nil
}

func (r batchCards) GetByOwner(ctx context.Context, ownerID string) (*domain.Card, error) {
	for _, id := range r.b.cardsCreated {
		if c := r.b.cards[id]; c.OwnerID == ownerID {
			out := *c
			return &out, nil
		}
	}
	c, ok := r.b.s.cardOf(ownerID)
	if !ok {
		return nil, fmt.Errorf("GetByOwner: %w", domain.ErrCardNotFound)
	}
	return r.overlay(c), nil
}

func (r batchCards) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	if c, ok := r.b.cards[id]; ok {
		out := *c
		return &out, nil
	}
	c, ok := r.b.s.card(id)
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrCardNotFound)
	}
	return &c, nil
}

func (r batchCards) ListAll(ctx context.Context) ([]domain.Card, error) {
	out := r.b.s.listCards()
	for i := range out {
		out[i] = *r.overlay(out[i])
	}
	for _, id := range r.b.cardsCreated {
		out = append(out, *r.b.cards[id])
	}
	return out, nil
}

func (r batchCards) overlay(c domain.Card) *domain.Card {
	if staged, ok := r.b.cards[c.ID]; ok {
		out := *staged
		return &out
	}
	return &c
}

func (r batchCards) ApplyDelta(ctx context.Context, id uuid.UUID, delta, expected decimal.Decimal) (*domain.Card, error) {
	b := r.b
	current, staged := b.cards[id]
	if !staged {
		committed, ok := b.s.card(id)
		if !ok {
			return nil, fmt.Errorf("ApplyDelta: %w", domain.ErrCardNotFound)
		}
		current = &committed
	}
	if !current.Balance.Equal(expected) {
		return nil, fmt.Errorf("ApplyDelta: card %s: %w", id, domain.ErrConflict)
	}
	next := expected.Add(delta)
	if next.IsNegative() {
		return nil, fmt.Errorf("ApplyDelta: card %s: %w", id, domain.ErrInsufficientFunds)
	}

	if !staged {
		b.cardBase[id] = current.Version
	}
	updated := *current
	updated.Balance = next
	updated.Version++
	b.cards[id] = &updated

	out := updated
	return &out, nil
}

type batchTransactions struct{ b *batch }

// Append stages txn. Its Seq, and CreatedAt when unset, are set when the
// batch commits.
func (r batchTransactions) Append(ctx context.Context, txn *domain.Transaction) error {
	if err := txn.Validate(); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	r.b.txns = append(r.b.txns, txn)
	return nil
}

func (r batchTransactions) FindPage(ctx context.Context, filter domain.TransactionFilter, page domain.PageRequest) (*domain.TransactionPage, error) {
	return r.b.s.findPage(filter, page), nil
}
