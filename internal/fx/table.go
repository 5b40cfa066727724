package fx

import (
	"fmt"
	"maps"
	"sync/atomic"
	"time"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// rateScale is the number of decimal places kept on the recorded cross rate.
const rateScale = 12

// Snapshot is one complete rate table, each rate expressed as units of the
// currency per one unit of Base. Snapshots are never mutated after Swap.
type Snapshot struct {
	Base      domain.Currency                     `json:"base"`
	Rates     map[domain.Currency]decimal.Decimal `json:"rates"`
	UpdatedAt time.Time                           `json:"updated_at"`
	Source    string                              `json:"source"`
}

func DefaultSnapshot() Snapshot {
	return Snapshot{
		Base: domain.CurrencyUSD,
		Rates: map[domain.Currency]decimal.Decimal{
			"USD": decimal.NewFromInt(1),
			"EUR": decimal.RequireFromString("0.9"),
			"GBP": decimal.RequireFromString("0.79"),
			"JPY": decimal.RequireFromString("151.2"),
			"KWD": decimal.RequireFromString("0.307"),
			"CAD": decimal.RequireFromString("1.36"),
			"KES": decimal.RequireFromString("129.5"),
			"NGN": decimal.RequireFromString("1338.38"),
		},
		UpdatedAt: time.Now().UTC(),
		Source:    "static",
	}
}

func (s Snapshot) validate() error {
	if !s.Base.IsValid() {
		return fmt.Errorf("invalid base currency %q: %w", s.Base, domain.ErrUnknownCurrency)
	}
	if len(s.Rates) == 0 {
		return fmt.Errorf("empty rate table")
	}
	for code, rate := range s.Rates {
		if !code.IsValid() {
			return fmt.Errorf("invalid currency %q: %w", code, domain.ErrUnknownCurrency)
		}
		if !rate.IsPositive() {
			return fmt.Errorf("non-positive rate %s for %s", rate, code)
		}
	}
	return nil
}

// Conversion is the outcome of converting Amount of From into To.
type Conversion struct {
	From      domain.Currency
	To        domain.Currency
	Amount    decimal.Decimal
	Converted decimal.Decimal
	Rate      decimal.Decimal
}

// Table serves lookups from the current snapshot. A refresh replaces the
// whole snapshot at once, so readers see either the old table or the new one.
type Table struct {
	current atomic.Pointer[Snapshot]
}

func NewTable(s Snapshot) (*Table, error) {
	t := &Table{}
	if err := t.Swap(s); err != nil {
		return nil, fmt.Errorf("NewTable: %w", err)
	}
	return t, nil
}

func (t *Table) Swap(s Snapshot) error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("Swap: %w", err)
	}
	rates := maps.Clone(s.Rates)
	if _, ok := rates[s.Base]; !ok {
		rates[s.Base] = decimal.NewFromInt(1)
	}
	s.Rates = rates
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	t.current.Store(&s)
	return nil
}

// Snapshot returns the current table. Callers must not modify it.
func (t *Table) Snapshot() *Snapshot {
	return t.current.Load()
}

func (t *Table) Rate(code domain.Currency) (decimal.Decimal, error) {
	rate, ok := t.current.Load().Rates[code]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("Rate: %s: %w", code, domain.ErrUnknownCurrency)
	}
	return rate, nil
}

func (t *Table) Supports(code domain.Currency) bool {
	_, ok := t.current.Load().Rates[code]
	return ok
}

func (t *Table) AllRates() map[domain.Currency]decimal.Decimal {
	return maps.Clone(t.current.Load().Rates)
}

// Convert computes amount * rate(to) / rate(from), rounded half-to-even to
// the minor units of to. Both rates come from the same snapshot.
func (t *Table) Convert(amount decimal.Decimal, from, to domain.Currency) (*Conversion, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("Convert: %w", domain.ErrInvalidAmount)
	}

	snap := t.current.Load()
	fromRate, ok := snap.Rates[from]
	if !ok {
		return nil, fmt.Errorf("Convert: %s: %w", from, domain.ErrUnknownCurrency)
	}
	toRate, ok := snap.Rates[to]
	if !ok {
		return nil, fmt.Errorf("Convert: %s: %w", to, domain.ErrUnknownCurrency)
	}

	converted := amount.Mul(toRate).Div(fromRate).RoundBank(to.MinorUnits())

	return &Conversion{
		From:      from,
		To:        to,
		Amount:    amount,
		Converted: converted,
		Rate:      toRate.DivRound(fromRate, rateScale),
	}, nil
}
