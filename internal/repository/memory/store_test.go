package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedAccount(t *testing.T, s *Store, number, owner string, currency domain.Currency, balance string) {
	t.Helper()
	err := s.Stores().Accounts.Create(context.Background(), &domain.Account{
		AccountNumber: number,
		OwnerID:       owner,
		Currency:      currency,
		Balance:       dec(balance),
	})
	require.NoError(t, err)
}

func balanceOf(t *testing.T, s *Store, number string) decimal.Decimal {
	t.Helper()
	a, err := s.Stores().Accounts.GetByNumber(context.Background(), number)
	require.NoError(t, err)
	return a.Balance
}

func TestCreateAccountUniqueness(t *testing.T) {
	s := New()
	seedAccount(t, s, "1000000001", "alice", "USD", "0")
	accounts := s.Stores().Accounts
	ctx := context.Background()

	tests := []struct {
		name    string
		account domain.Account
		wantErr error
	}{
		{name: "same owner and currency", account: domain.Account{AccountNumber: "1000000002", OwnerID: "alice", Currency: "USD"}, wantErr: domain.ErrAccountExists},
		{name: "same number", account: domain.Account{AccountNumber: "1000000001", OwnerID: "bob", Currency: "EUR"}, wantErr: domain.ErrDuplicateNumber},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := accounts.Create(ctx, &tc.account)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	require.NoError(t, accounts.Create(ctx, &domain.Account{AccountNumber: "1000000003", OwnerID: "alice", Currency: "EUR"}))
}

func TestLookups(t *testing.T) {
	s := New()
	seedAccount(t, s, "1000000001", "alice", "USD", "10")
	seedAccount(t, s, "1000000002", "alice", "EUR", "20")
	seedAccount(t, s, "1000000003", "bob", "USD", "30")
	accounts := s.Stores().Accounts
	ctx := context.Background()

	a, err := accounts.GetByOwnerAndCurrency(ctx, "alice", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "1000000002", a.AccountNumber)

	_, err = accounts.GetByOwnerAndCurrency(ctx, "bob", "EUR")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = accounts.GetByNumber(ctx, "9999999999")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	owned, err := accounts.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "1000000001", owned[0].AccountNumber)
	assert.Equal(t, "1000000002", owned[1].AccountNumber)

	all, err := accounts.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestApplyDelta(t *testing.T) {
	tests := []struct {
		name     string
		delta    string
		expected string
		wantErr  error
		want     string
	}{
		{name: "credit", delta: "5", expected: "10", want: "15"},
		{name: "debit to zero", delta: "-10", expected: "10", want: "0"},
		{name: "overdraw", delta: "-10.01", expected: "10", wantErr: domain.ErrInsufficientFunds, want: "10"},
		{name: "stale expected", delta: "1", expected: "9", wantErr: domain.ErrConflict, want: "10"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			seedAccount(t, s, "1000000001", "alice", "USD", "10")

			_, err := s.Stores().Accounts.ApplyDelta(context.Background(), "1000000001", dec(tc.delta), dec(tc.expected))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, balanceOf(t, s, "1000000001").Equal(dec(tc.want)))
		})
	}
}

func TestApplyDeltaUnknownAccount(t *testing.T) {
	s := New()
	_, err := s.Stores().Accounts.ApplyDelta(context.Background(), "1", dec("1"), dec("0"))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestDoCommitsAllOrNothing(t *testing.T) {
	s := New()
	seedAccount(t, s, "1000000001", "alice", "USD", "100")
	seedAccount(t, s, "1000000002", "bob", "USD", "0")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		_, err := st.Accounts.ApplyDelta(ctx, "1000000001", dec("-40"), dec("100"))
		require.NoError(t, err)
		_, err = st.Accounts.ApplyDelta(ctx, "1000000002", dec("40"), dec("0"))
		require.NoError(t, err)

		staged, err := st.Accounts.GetByNumber(ctx, "1000000001")
		require.NoError(t, err)
		assert.True(t, staged.Balance.Equal(dec("60")), "batch reads its own writes")
		assert.True(t, balanceOf(t, s, "1000000001").Equal(dec("100")), "others see committed state")
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, balanceOf(t, s, "1000000001").Equal(dec("100")))
	assert.True(t, balanceOf(t, s, "1000000002").Equal(dec("0")))

	page, err := s.Stores().Transactions.FindPage(ctx, domain.TransactionFilter{}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestDoDetectsConcurrentCommit(t *testing.T) {
	s := New()
	seedAccount(t, s, "1000000001", "alice", "USD", "100")
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		_, err := st.Accounts.ApplyDelta(ctx, "1000000001", dec("-40"), dec("100"))
		require.NoError(t, err)

		// Another writer commits first.
		_, err = s.Stores().Accounts.ApplyDelta(ctx, "1000000001", dec("-10"), dec("100"))
		require.NoError(t, err)
		return nil
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, balanceOf(t, s, "1000000001").Equal(dec("90")))
}

func TestDoSkipsCommitWhenCancelled(t *testing.T) {
	s := New()
	seedAccount(t, s, "1000000001", "alice", "USD", "100")
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		_, err := st.Accounts.ApplyDelta(ctx, "1000000001", dec("-40"), dec("100"))
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, balanceOf(t, s, "1000000001").Equal(dec("100")))
}

func TestCards(t *testing.T) {
	s := New()
	cards := s.Stores().Cards
	ctx := context.Background()

	card := &domain.Card{OwnerID: "alice", Number: "4000000000000002", Currency: "USD", Balance: dec("5")}
	require.NoError(t, cards.Create(ctx, card))
	require.NotEqual(t, uuid.Nil, card.ID)

	err := cards.Create(ctx, &domain.Card{OwnerID: "alice", Number: "4000000000000010", Currency: "USD"})
	require.ErrorIs(t, err, domain.ErrCardExists)

	err = cards.Create(ctx, &domain.Card{OwnerID: "bob", Number: "4000000000000002", Currency: "USD"})
	require.ErrorIs(t, err, domain.ErrDuplicateNumber)

	got, err := cards.GetByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, card.ID, got.ID)

	_, err = cards.GetByOwner(ctx, "bob")
	require.ErrorIs(t, err, domain.ErrCardNotFound)

	updated, err := cards.ApplyDelta(ctx, card.ID, dec("-5"), dec("5"))
	require.NoError(t, err)
	assert.True(t, updated.Balance.IsZero())
	assert.Equal(t, int64(1), updated.Version)

	_, err = cards.ApplyDelta(ctx, card.ID, dec("-1"), dec("0"))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	all, err := cards.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func appendDeposit(t *testing.T, s *Store, owner, source string) *domain.Transaction {
	t.Helper()
	txn := &domain.Transaction{
		OwnerID:  owner,
		Type:     domain.TransactionDeposit,
		Amount:   dec("1"),
		Currency: "USD",
		Source:   source,
	}
	require.NoError(t, s.Stores().Transactions.Append(context.Background(), txn))
	return txn
}

func TestAppendAssignsIncreasingSeq(t *testing.T) {
	s := New()
	first := appendDeposit(t, s, "alice", "1000000001")
	second := appendDeposit(t, s, "alice", "1000000001")

	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	err := s.Stores().Transactions.Append(context.Background(), &domain.Transaction{
		OwnerID: "alice",
		Type:    domain.TransactionWithdraw,
		Amount:  dec("1"),
		Source:  "1000000001",
	})
	require.Error(t, err)
}

func TestFindPage(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		appendDeposit(t, s, "alice", "1000000001")
		appendDeposit(t, s, "bob", "1000000002")
	}
	log := s.Stores().Transactions
	ctx := context.Background()
	alice := domain.TransactionFilter{OwnerID: "alice"}

	first, err := log.FindPage(ctx, alice, domain.PageRequest{Size: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, []int64{1, 3}, seqs(first.Items))
	assert.Equal(t, int64(3), first.NextCursor)

	byNumber, err := log.FindPage(ctx, alice, domain.PageRequest{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, seqs(byNumber.Items))

	byCursor, err := log.FindPage(ctx, alice, domain.PageRequest{Number: 4, Size: 2, After: first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, seqs(byCursor.Items), "cursor wins over page number")

	// Appends after the first page do not shift the cursor's view.
	appendDeposit(t, s, "alice", "1000000001")
	last, err := log.FindPage(ctx, alice, domain.PageRequest{Size: 10, After: 7})
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 11}, seqs(last.Items))
	assert.Zero(t, last.NextCursor)

	byAccount, err := log.FindPage(ctx, domain.TransactionFilter{Account: "1000000002"}, domain.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, byAccount.Items, 5)
}

func TestCreatedAtFollowsCommitOrder(t *testing.T) {
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks int
	s.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Second)
	}
	ctx := context.Background()
	deposit := func(owner string) *domain.Transaction {
		return &domain.Transaction{OwnerID: owner, Type: domain.TransactionDeposit, Amount: dec("1"), Currency: "USD", Source: "1000000001"}
	}

	early, late := deposit("alice"), deposit("bob")
	err := s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
		if err := st.Transactions.Append(ctx, early); err != nil {
			return err
		}
		// Another batch staged later commits first.
		return s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
			return st.Transactions.Append(ctx, late)
		})
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), late.Seq)
	assert.Equal(t, int64(2), early.Seq)
	assert.True(t, early.CreatedAt.After(late.CreatedAt))

	// A clock that steps back does not reorder the log.
	s.now = func() time.Time { return base }
	again := appendDeposit(t, s, "alice", "1000000001")
	assert.Equal(t, early.CreatedAt, again.CreatedAt)
}

func TestCursorPagingWhileAppending(t *testing.T) {
	s := New()
	ctx := context.Background()
	log := s.Stores().Transactions
	filter := domain.TransactionFilter{OwnerID: "alice"}

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range perWriter {
				owner := "alice"
				if i%3 == 0 {
					owner = "bob"
				}
				err := s.Do(ctx, func(ctx context.Context, st ledger.Stores) error {
					for range 2 {
						err := st.Transactions.Append(ctx, &domain.Transaction{
							OwnerID: owner, Type: domain.TransactionDeposit, Amount: dec("1"), Currency: "USD", Source: "1000000001",
						})
						if err != nil {
							return err
						}
					}
					return nil
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var seen []int64
	var cursor int64
	drain := func() {
		for {
			page, err := log.FindPage(ctx, filter, domain.PageRequest{Size: 7, After: cursor})
			require.NoError(t, err)
			for _, txn := range page.Items {
				seen = append(seen, txn.Seq)
				cursor = txn.Seq
			}
			if len(page.Items) < 7 {
				return
			}
		}
	}
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			drain()
		}
	}
	drain()

	var want []int64
	for _, txn := range s.txns {
		if txn.OwnerID == "alice" {
			want = append(want, txn.Seq)
		}
	}
	require.NotEmpty(t, want)
	assert.Equal(t, want, seen)
}

func seqs(items []domain.Transaction) []int64 {
	out := make([]int64, len(items))
	for i, txn := range items {
		out[i] = txn.Seq
	}
	return out
}
