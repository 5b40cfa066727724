package ledger

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type ConvertRequest struct {
	SourceCurrency domain.Currency
	TargetCurrency domain.Currency
	Amount         decimal.Decimal
}

// Convert moves Amount out of the owner's SourceCurrency account and credits
// the converted amount to their TargetCurrency account. The rate is taken
// once, before locking, and recorded on the CONVERSION transaction.
func (e *Engine) Convert(ctx context.Context, ownerID string, req ConvertRequest) (*domain.Transaction, error) {
	const op = "Convert"

	if err := e.knownCurrency(req.SourceCurrency); err != nil {
		return nil, opError(op, req.Amount, err)
	}
	if err := e.knownCurrency(req.TargetCurrency); err != nil {
		return nil, opError(op, req.Amount, err)
	}
	if req.SourceCurrency == req.TargetCurrency {
		return nil, opError(op, req.Amount, fmt.Errorf("%s to itself: %w", req.SourceCurrency, domain.ErrSelfTransfer))
	}
	if err := validAmount(req.Amount, req.SourceCurrency, false); err != nil {
		return nil, opError(op, req.Amount, err)
	}

	source, err := e.stores.Accounts.GetByOwnerAndCurrency(ctx, ownerID, req.SourceCurrency)
	if err != nil {
		return nil, opError(op, req.Amount, fmt.Errorf("source: %w", err))
	}
	target, err := e.stores.Accounts.GetByOwnerAndCurrency(ctx, ownerID, req.TargetCurrency)
	if err != nil {
		return nil, opError(op, req.Amount, fmt.Errorf("target: %w", err), source.AccountNumber)
	}
	refs := []string{source.AccountNumber, target.AccountNumber}

	conv, err := e.rates.Convert(req.Amount, req.SourceCurrency, req.TargetCurrency)
	if err != nil {
		return nil, opError(op, req.Amount, err, refs...)
	}
	if !conv.Converted.IsPositive() {
		return nil, opError(op, req.Amount,
			fmt.Errorf("converts to %s %s: %w", conv.Converted, req.TargetCurrency, domain.ErrInvalidAmount), refs...)
	}

	var txn *domain.Transaction
	keys := []string{accountKey(source.AccountNumber), accountKey(target.AccountNumber)}
	err = e.mutate(ctx, op, keys, func(ctx context.Context, s Stores) error {
		from, err := s.Accounts.GetByNumber(ctx, source.AccountNumber)
		if err != nil {
			return err
		}
		to, err := s.Accounts.GetByNumber(ctx, target.AccountNumber)
		if err != nil {
			return err
		}
		if from.Balance.LessThan(req.Amount) {
			return fmt.Errorf("balance %s: %w", from.Balance, domain.ErrInsufficientFunds)
		}

		if _, err := s.Accounts.ApplyDelta(ctx, from.AccountNumber, req.Amount.Neg(), from.Balance); err != nil {
			return err
		}
		if _, err := s.Accounts.ApplyDelta(ctx, to.AccountNumber, conv.Converted, to.Balance); err != nil {
			return err
		}

		destination := to.AccountNumber
		targetCurrency := to.Currency
		converted := conv.Converted
		rate := conv.Rate
		t := &domain.Transaction{
			OwnerID:         ownerID,
			Type:            domain.TransactionConversion,
			Amount:          req.Amount,
			Currency:        from.Currency,
			Source:          from.AccountNumber,
			Destination:     &destination,
			ConvertedAmount: &converted,
			TargetCurrency:  &targetCurrency,
			Rate:            &rate,
		}
		if err := s.Transactions.Append(ctx, t); err != nil {
			return err
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, opError(op, req.Amount, err, refs...)
	}
	return txn, nil
}
