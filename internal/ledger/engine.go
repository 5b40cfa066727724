// Package ledger performs every balance-affecting operation. Each mutation
// locks the accounts or card it touches in a fixed order, then re-reads,
// checks, updates and records the transaction inside one unit of work.
package ledger

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/josh-kwaku/bank-ledger/internal/fx"
	"github.com/josh-kwaku/bank-ledger/internal/logging"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type RateTable interface {
	Convert(amount decimal.Decimal, from, to domain.Currency) (*fx.Conversion, error)
	Supports(code domain.Currency) bool
	AllRates() map[domain.Currency]decimal.Decimal
}

type Options struct {
	LockTimeout  time.Duration
	MaxRetries   int
	HomeCurrency domain.Currency
	// CVVCost is the bcrypt cost for card CVVs; zero means bcrypt.DefaultCost.
	CVVCost int
}

func (o Options) withDefaults() Options {
	if o.LockTimeout <= 0 {
		o.LockTimeout = 2 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.HomeCurrency == "" {
		o.HomeCurrency = domain.CurrencyUSD
	}
	if o.CVVCost == 0 {
		o.CVVCost = bcrypt.DefaultCost
	}
	return o
}

// maxNumberAttempts bounds how often a freshly drawn account or card number
// may collide before creation gives up.
const maxNumberAttempts = 5

type Engine struct {
	stores Stores
	uow    UnitOfWork
	rates  RateTable
	locks  *LockManager
	opts   Options
}

// New builds an engine. stores serves reads outside a unit of work.
func New(stores Stores, uow UnitOfWork, rates RateTable, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		stores: stores,
		uow:    uow,
		rates:  rates,
		locks:  NewLockManager(opts.LockTimeout),
		opts:   opts,
	}
}

// mutate runs fn with keys held, retrying conflicts and lock timeouts with
// exponential backoff. Any other error ends the attempt immediately.
func (e *Engine) mutate(ctx context.Context, op string, keys []string, fn func(ctx context.Context, s Stores) error) error {
	attempt := func() error {
		release, err := e.locks.Acquire(ctx, keys...)
		if err != nil {
			return e.classify(err)
		}
		defer release()

		return e.classify(e.uow.Do(ctx, fn))
	}

	notify := func(err error, wait time.Duration) {
		logging.FromContext(ctx).Warn("retrying ledger operation",
			"op", op,
			"keys", keys,
			"error", err,
			"backoff", wait,
		)
	}

	return backoff.RetryNotify(attempt, e.backOff(ctx), notify)
}

func (e *Engine) classify(err error) error {
	if err == nil || domain.IsRetryable(err) {
		return err
	}
	return backoff.Permanent(err)
}

func (e *Engine) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.opts.MaxRetries)), ctx)
}

func opError(op string, amount decimal.Decimal, err error, refs ...string) error {
	return &domain.OpError{Op: op, Refs: refs, Amount: amount, Err: err}
}

// validAmount accepts positive amounts, or zero when allowZero is set, that
// are whole minor units of currency.
func validAmount(amount decimal.Decimal, currency domain.Currency, allowZero bool) error {
	if amount.IsNegative() || (amount.IsZero() && !allowZero) {
		return fmt.Errorf("amount %s: %w", amount, domain.ErrInvalidAmount)
	}
	if !currency.FitsMinorUnits(amount) {
		return fmt.Errorf("amount %s finer than %s minor units: %w", amount, currency, domain.ErrInvalidAmount)
	}
	return nil
}

func (e *Engine) knownCurrency(code domain.Currency) error {
	if !code.IsValid() || !e.rates.Supports(code) {
		return fmt.Errorf("currency %q: %w", code, domain.ErrUnknownCurrency)
	}
	return nil
}

// randomDigits draws n uniformly random decimal digits.
func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("randomDigits: %w", err)
	}
	s := v.String()
	return strings.Repeat("0", n-len(s)) + s, nil
}
