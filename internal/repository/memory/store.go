// Package memory is an in-process implementation of the ledger stores.
//
// Writes made inside Do are staged in a batch and only become visible when
// the batch commits. Commit re-checks every balance the batch changed against
// the version it read, so a stale batch fails with domain.ErrConflict and
// leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
)

type ownerCurrency struct {
	owner    string
	currency domain.Currency
}

type Store struct {
	mu sync.RWMutex

	accounts     map[string]domain.Account
	byOwner      map[ownerCurrency]string
	accountOrder []string

	cards       map[uuid.UUID]domain.Card
	cardByOwner map[string]uuid.UUID
	cardOrder   []uuid.UUID

	txns []domain.Transaction
	seq  int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		accounts:    make(map[string]domain.Account),
		byOwner:     make(map[ownerCurrency]string),
		cards:       make(map[uuid.UUID]domain.Card),
		cardByOwner: make(map[string]uuid.UUID),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Stores returns stores that read committed state. Each write through them
// commits on its own.
func (s *Store) Stores() ledger.Stores {
	return ledger.Stores{
		Accounts:     &autoAccounts{s: s},
		Cards:        &autoCards{s: s},
		Transactions: &autoTransactions{s: s},
	}
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st ledger.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := newBatch(s)
	if err := fn(ctx, b.stores()); err != nil {
		return err
	}
	// A batch whose caller gave up must not commit.
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(b)
}

func (s *Store) commit(b *batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for number, version := range b.accountBase {
		if s.accounts[number].Version != version {
			return fmt.Errorf("commit: account %s: %w", number, domain.ErrConflict)
		}
	}
	for id, version := range b.cardBase {
		if s.cards[id].Version != version {
			return fmt.Errorf("commit: card %s: %w", id, domain.ErrConflict)
		}
	}
	for _, number := range b.accountsCreated {
		a := b.accounts[number]
		if _, ok := s.accounts[number]; ok {
			return fmt.Errorf("commit: account number %s: %w", number, domain.ErrDuplicateNumber)
		}
		if _, ok := s.byOwner[ownerCurrency{a.OwnerID, a.Currency}]; ok {
			return fmt.Errorf("commit: %s/%s: %w", a.OwnerID, a.Currency, domain.ErrAccountExists)
		}
	}
	for _, id := range b.cardsCreated {
		c := b.cards[id]
		if _, ok := s.cardByOwner[c.OwnerID]; ok {
			return fmt.Errorf("commit: %w", domain.ErrCardExists)
		}
		for _, existing := range s.cards {
			if existing.Number == c.Number {
				return fmt.Errorf("commit: card number: %w", domain.ErrDuplicateNumber)
			}
		}
	}

	for _, number := range b.accountsCreated {
		a := b.accounts[number]
		s.byOwner[ownerCurrency{a.OwnerID, a.Currency}] = number
		s.accountOrder = append(s.accountOrder, number)
	}
	for number, a := range b.accounts {
		s.accounts[number] = *a
	}
	for _, id := range b.cardsCreated {
		s.cardByOwner[b.cards[id].OwnerID] = id
		s.cardOrder = append(s.cardOrder, id)
	}
	for id, c := range b.cards {
		s.cards[id] = *c
	}
	for _, txn := range b.txns {
		s.seq++
		txn.Seq = s.seq
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = s.stamp()
		}
		s.txns = append(s.txns, *txn)
	}
	return nil
}

// stamp returns the commit time for a new log entry, never earlier than the
// entry committed before it. Callers hold s.mu.
func (s *Store) stamp() time.Time {
	now := s.now()
	if n := len(s.txns); n > 0 && now.Before(s.txns[n-1].CreatedAt) {
		return s.txns[n-1].CreatedAt
	}
	return now
}

func (s *Store) account(number string) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[number]
	return a, ok
}

func (s *Store) accountByOwner(owner string, currency domain.Currency) (domain.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	number, ok := s.byOwner[ownerCurrency{owner, currency}]
	if !ok {
		return domain.Account{}, false
	}
	return s.accounts[number], true
}

func (s *Store) card(id uuid.UUID) (domain.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	return c, ok
}

func (s *Store) cardOf(owner string) (domain.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.cardByOwner[owner]
	if !ok {
		return domain.Card{}, false
	}
	return s.cards[id], true
}

// listAccounts returns committed accounts in creation order, keeping those
// keep accepts.
func (s *Store) listAccounts(keep func(*domain.Account) bool) []domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Account
	for _, number := range s.accountOrder {
		a := s.accounts[number]
		if keep(&a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) listCards() []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Card, 0, len(s.cardOrder))
	for _, id := range s.cardOrder {
		out = append(out, s.cards[id])
	}
	return out
}
