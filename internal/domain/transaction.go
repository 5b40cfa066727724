package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionWithdraw   TransactionType = "WITHDRAW"
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionDebit      TransactionType = "DEBIT"
	TransactionCredit     TransactionType = "CREDIT"
	TransactionConversion TransactionType = "CONVERSION"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionWithdraw, TransactionDeposit, TransactionDebit, TransactionCredit, TransactionConversion:
		return true
	}
	return false
}

// Transaction records one completed balance-affecting operation. Source and
// Destination hold account numbers, or the card id for card movements.
// DEPOSIT and CREDIT bring money in on Source, DEBIT takes it out; these are
// the only points where the ledger total changes.
//
// Amount is always in Currency, the currency of Source. A CONVERSION also
// carries the amount credited to Destination in TargetCurrency and the rate
// used.
type Transaction struct {
	ID              uuid.UUID
	Seq             int64
	OwnerID         string
	Type            TransactionType
	Amount          decimal.Decimal
	Currency        Currency
	Source          string
	Destination     *string
	ConvertedAmount *decimal.Decimal
	TargetCurrency  *Currency
	Rate            *decimal.Decimal
	CreatedAt       time.Time
}

// Validate checks the fields each transaction type requires.
func (t *Transaction) Validate() error {
	if !t.Type.IsValid() {
		return fmt.Errorf("Validate: unknown transaction type %q", t.Type)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("Validate: %w", ErrInvalidAmount)
	}
	if t.Source == "" {
		return fmt.Errorf("Validate: %s without source", t.Type)
	}

	switch t.Type {
	case TransactionWithdraw:
		if t.Destination == nil {
			return fmt.Errorf("Validate: WITHDRAW without destination")
		}
	case TransactionDeposit, TransactionCredit, TransactionDebit:
		if t.Destination != nil {
			return fmt.Errorf("Validate: %s with destination", t.Type)
		}
	case TransactionConversion:
		if t.Destination == nil || t.ConvertedAmount == nil || t.TargetCurrency == nil || t.Rate == nil {
			return fmt.Errorf("Validate: CONVERSION missing destination, converted amount, target currency or rate")
		}
	}
	return nil
}

// Involves reports whether ref is the source or destination.
func (t *Transaction) Involves(ref string) bool {
	return t.Source == ref || (t.Destination != nil && *t.Destination == ref)
}

type TransactionFilter struct {
	OwnerID string
	Account string
	Card    string
}

// Matches applies the filter in memory; empty fields match everything.
func (f TransactionFilter) Matches(t *Transaction) bool {
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}
	if f.Account != "" && !t.Involves(f.Account) {
		return false
	}
	if f.Card != "" && !t.Involves(f.Card) {
		return false
	}
	return true
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest selects a page in append order. When After is set it is a
// cursor (the Seq of the last item already seen) and Number is ignored.
type PageRequest struct {
	Number int
	Size   int
	After  int64
}

func (p PageRequest) Normalize() PageRequest {
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	if p.Number < 0 {
		p.Number = 0
	}
	if p.After < 0 {
		p.After = 0
	}
	return p
}

func (p PageRequest) Offset() int {
	if p.After > 0 {
		return 0
	}
	return p.Number * p.Size
}

// Effects returns the signed balance change this transaction applies to each
// reference it names.
func (t *Transaction) Effects() map[string]decimal.Decimal {
	switch t.Type {
	case TransactionDeposit, TransactionCredit:
		return map[string]decimal.Decimal{t.Source: t.Amount}
	case TransactionDebit:
		return map[string]decimal.Decimal{t.Source: t.Amount.Neg()}
	}
	effects := map[string]decimal.Decimal{t.Source: t.Amount.Neg()}
	if t.Destination != nil {
		credit := t.Amount
		if t.ConvertedAmount != nil {
			credit = *t.ConvertedAmount
		}
		effects[*t.Destination] = effects[*t.Destination].Add(credit)
	}
	return effects
}

type TransactionPage struct {
	Items      []Transaction
	NextCursor int64
}
