package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// The auto* views serve reads from committed state and wrap each write in
// its own Do.

type autoAccounts struct{ s *Store }

func (r *autoAccounts) view() batchAccounts { return batchAccounts{newBatch(r.s)} }

func (r *autoAccounts) Create(ctx context.Context, account *domain.Account) error {
	return r.s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		return st.Accounts.Create(ctx, account)
	})
}

func (r *autoAccounts) GetByOwnerAndCurrency(ctx context.Context, ownerID string, currency domain.Currency) (*domain.Account, error) {
	return r.view().GetByOwnerAndCurrency(ctx, ownerID, currency)
}

func (r *autoAccounts) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	return r.view().GetByNumber(ctx, number)
}

func (r *autoAccounts) ListByOwner(ctx context.Context, ownerID string) ([]domain.Account, error) {
	return r.view().ListByOwner(ctx, ownerID)
}

func (r *autoAccounts) ListAll(ctx context.Context) ([]domain.Account, error) {
	return r.view().ListAll(ctx)
}

func (r *autoAccounts) ApplyDelta(ctx context.Context, number string, delta, expected decimal.Decimal) (*domain.Account, error) {
	var out *domain.Account
	err := r.s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		var err error
		out, err = st.Accounts.ApplyDelta(ctx, number, delta, expected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type autoCards struct{ s *Store }

func (r *autoCards) view() batchCards { return batchCards{newBatch(r.s)} }

func (r *autoCards) Create(ctx context.Context, card *domain.Card) error {
	return r.s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		return st.Cards.Create(ctx, card)
	})
}

func (r *autoCards) GetByOwner(ctx context.Context, ownerID string) (*domain.Card, error) {
	return r.view().GetByOwner(ctx, ownerID)
}

func (r *autoCards) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	return r.view().GetByID(ctx, id)
}

func (r *autoCards) ListAll(ctx context.Context) ([]domain.Card, error) {
	return r.view().ListAll(ctx)
}

func (r *autoCards) ApplyDelta(ctx context.Context, id uuid.UUID, delta, expected decimal.Decimal) (*domain.Card, error) {
	var out *domain.Card
	err := r.s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		var err error
		out, err = st.Cards.ApplyDelta(ctx, id, delta, expected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type autoTransactions struct{ s *Store }

func (r *autoTransactions) Append(ctx context.Context, txn *domain.Transaction) error {
	return r.s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		return st.Transactions.Append(ctx, txn)
	})
}

func (r *autoTransactions) FindPage(ctx context.Context, filter domain.TransactionFilter, page domain.PageRequest) (*domain.TransactionPage, error) {
	return r.s.findPage(filter, page), nil
}

// findPage walks the log in Seq order. A cursor skips straight to the first
// Seq after it; otherwise the offset counts matching transactions.
func (s *Store) findPage(filter domain.TransactionFilter, page domain.PageRequest) *domain.TransactionPage {
	page = page.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if page.After > 0 {
		start = sort.Search(len(s.txns), func(i int) bool { return s.txns[i].Seq > page.After })
	}

	skip := page.Offset()
	items := make([]domain.Transaction, 0, page.Size)
	for i := start; i < len(s.txns) && len(items) < page.Size; i++ {
		if !filter.Matches(&s.txns[i]) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		items = append(items, s.txns[i])
	}

	result := &domain.TransactionPage{Items: items}
	if len(items) == page.Size {
		result.NextCursor = items[len(items)-1].Seq
	}
	return result
}
