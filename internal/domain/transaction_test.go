package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestTransactionValidate(t *testing.T) {
	one := decimal.NewFromInt(1)

	tests := []struct {
		name    string
		txn     Transaction
		wantErr bool
	}{
		{"deposit", Transaction{Type: TransactionDeposit, Amount: one, Source: "a"}, false},
		{"deposit with destination", Transaction{Type: TransactionDeposit, Amount: one, Source: "a", Destination: ptr("b")}, true},
		{"credit", Transaction{Type: TransactionCredit, Amount: one, Source: "card"}, false},
		{"debit with destination", Transaction{Type: TransactionDebit, Amount: one, Source: "card", Destination: ptr("b")}, true},
		{"withdraw", Transaction{Type: TransactionWithdraw, Amount: one, Source: "a", Destination: ptr("b")}, false},
		{"withdraw without destination", Transaction{Type: TransactionWithdraw, Amount: one, Source: "a"}, true},
		{"conversion", Transaction{
			Type: TransactionConversion, Amount: one, Source: "a", Destination: ptr("b"),
			ConvertedAmount: ptr(one), TargetCurrency: ptr(CurrencyEUR), Rate: ptr(one),
		}, false},
		{"conversion without rate", Transaction{
			Type: TransactionConversion, Amount: one, Source: "a", Destination: ptr("b"),
			ConvertedAmount: ptr(one), TargetCurrency: ptr(CurrencyEUR),
		}, true},
		{"zero amount", Transaction{Type: TransactionDeposit, Amount: decimal.Zero, Source: "a"}, true},
		{"missing source", Transaction{Type: TransactionDeposit, Amount: one}, true},
		{"unknown type", Transaction{Type: "REFUND", Amount: one, Source: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	err := (&Transaction{Type: TransactionDeposit, Amount: one.Neg(), Source: "a"}).Validate()
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestTransactionEffects(t *testing.T) {
	d := decimal.RequireFromString

	tests := []struct {
		name string
		txn  Transaction
		want map[string]string
	}{
		{"deposit", Transaction{Type: TransactionDeposit, Amount: d("10"), Source: "a"}, map[string]string{"a": "10"}},
		{"credit", Transaction{Type: TransactionCredit, Amount: d("3"), Source: "card"}, map[string]string{"card": "3"}},
		{"debit", Transaction{Type: TransactionDebit, Amount: d("3"), Source: "card"}, map[string]string{"card": "-3"}},
		{"withdraw", Transaction{Type: TransactionWithdraw, Amount: d("4"), Source: "a", Destination: ptr("b")},
			map[string]string{"a": "-4", "b": "4"}},
		{"conversion", Transaction{
			Type: TransactionConversion, Amount: d("50"), Source: "usd", Destination: ptr("eur"),
			ConvertedAmount: ptr(d("45")), TargetCurrency: ptr(CurrencyEUR), Rate: ptr(d("0.9")),
		}, map[string]string{"usd": "-50", "eur": "45"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.txn.Effects()
			require.Len(t, got, len(tt.want))
			for ref, want := range tt.want {
				assert.True(t, got[ref].Equal(d(want)), "%s: got %s, want %s", ref, got[ref], want)
			}
		})
	}
}

func TestTransactionFilterMatches(t *testing.T) {
	txn := &Transaction{OwnerID: "alice", Source: "111", Destination: ptr("222")}

	assert.True(t, TransactionFilter{}.Matches(txn))
	assert.True(t, TransactionFilter{OwnerID: "alice"}.Matches(txn))
	assert.False(t, TransactionFilter{OwnerID: "bob"}.Matches(txn))
	assert.True(t, TransactionFilter{Account: "222"}.Matches(txn))
	assert.False(t, TransactionFilter{Account: "333"}.Matches(txn))
	assert.False(t, TransactionFilter{OwnerID: "alice", Card: "333"}.Matches(txn))
}

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		in         PageRequest
		wantSize   int
		wantOffset int
	}{
		{"defaults", PageRequest{}, DefaultPageSize, 0},
		{"clamps size", PageRequest{Size: 1000}, MaxPageSize, 0},
		{"page offset", PageRequest{Number: 3, Size: 10}, 10, 30},
		{"negative page", PageRequest{Number: -2, Size: 5}, 5, 0},
		{"cursor ignores page", PageRequest{Number: 3, Size: 10, After: 7}, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in.Normalize()
			assert.Equal(t, tt.wantSize, p.Size)
			assert.Equal(t, tt.wantOffset, p.Offset())
		})
	}
}

func TestOpError(t *testing.T) {
	err := &OpError{
		Op:     "Transfer",
		Refs:   []string{"1111111111", "2222222222"},
		Amount: decimal.RequireFromString("12.5"),
		Err:    ErrInsufficientFunds,
	}

	assert.Equal(t, "Transfer [1111111111 -> 2222222222] amount=12.5: insufficient funds", err.Error())
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	var opErr *OpError
	require.True(t, errors.As(error(err), &opErr))
	assert.Equal(t, "Transfer", opErr.Op)

	bare := &OpError{Op: "Audit", Err: ErrIntegrityViolation}
	assert.Equal(t, "Audit: ledger integrity violation", bare.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrConflict))
	assert.True(t, IsRetryable(&OpError{Op: "Transfer", Err: ErrLockTimeout}))
	assert.False(t, IsRetryable(ErrInsufficientFunds))
}
