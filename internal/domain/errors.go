package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrAccountNotFound    = errors.New("no account of that currency for this user")
	ErrAccountExists      = errors.New("account already exists for this currency")
	ErrDuplicateNumber    = errors.New("account number already issued")
	ErrCurrencyMismatch   = errors.New("currency mismatch")
	ErrUnknownCurrency    = errors.New("unknown currency")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrSelfTransfer       = errors.New("cannot transfer to same account")
	ErrCardExists         = errors.New("card already exists for this user")
	ErrCardNotFound       = errors.New("card not found")
	ErrConflict           = errors.New("balance modified concurrently")
	ErrLockTimeout        = errors.New("timed out waiting for account lock")
	ErrIntegrityViolation = errors.New("ledger integrity violation")
)

// IsRetryable reports whether err is transient and the same request may be
// submitted again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrLockTimeout)
}

// OpError is returned by every ledger operation. Refs holds the account
// numbers or card ids the operation addressed.
type OpError struct {
	Op     string
	Refs   []string
	Amount decimal.Decimal
	Err    error
}

func (e *OpError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if len(e.Refs) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Refs, " -> "))
	}
	if !e.Amount.IsZero() {
		fmt.Fprintf(&b, " amount=%s", e.Amount.String())
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *OpError) Unwrap() error { return e.Err }
