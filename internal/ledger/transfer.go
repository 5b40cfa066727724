package ledger

import (
	"context"
	"fmt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type TransferRequest struct {
	Currency               domain.Currency
	RecipientAccountNumber string
	Amount                 decimal.Decimal
}

// Transfer moves Amount from the owner's account in req.Currency to the
// recipient account and records a single WITHDRAW naming both.
func (e *Engine) Transfer(ctx context.Context, ownerID string, req TransferRequest) (*domain.Transaction, error) {
	const op = "Transfer"

	if err := validAmount(req.Amount, req.Currency, false); err != nil {
		return nil, opError(op, req.Amount, err, req.RecipientAccountNumber)
	}

	sender, err := e.stores.Accounts.GetByOwnerAndCurrency(ctx, ownerID, req.Currency)
	if err != nil {
		return nil, opError(op, req.Amount, fmt.Errorf("sender: %w", err), req.RecipientAccountNumber)
	}
	refs := []string{sender.AccountNumber, req.RecipientAccountNumber}

	recipient, err := e.stores.Accounts.GetByNumber(ctx, req.RecipientAccountNumber)
	if err != nil {
		return nil, opError(op, req.Amount, fmt.Errorf("recipient: %w", err), refs...)
	}
	if recipient.AccountNumber == sender.AccountNumber {
		return nil, opError(op, req.Amount, domain.ErrSelfTransfer, refs...)
	}
	if recipient.Currency != sender.Currency {
		return nil, opError(op, req.Amount,
			fmt.Errorf("%s to %s: %w", sender.Currency, recipient.Currency, domain.ErrCurrencyMismatch), refs...)
	}

	var txn *domain.Transaction
	keys := []string{accountKey(sender.AccountNumber), accountKey(recipient.AccountNumber)}
	err = e.mutate(ctx, op, keys, func(ctx context.Context, s Stores) error {
		from, err := s.Accounts.GetByNumber(ctx, sender.AccountNumber)
		if err != nil {
			return err
		}
		to, err := s.Accounts.GetByNumber(ctx, recipient.AccountNumber)
		if err != nil {
			return err
		}
		if from.Balance.LessThan(req.Amount) {
			return fmt.Errorf("balance %s: %w", from.Balance, domain.ErrInsufficientFunds)
		}

		if _, err := s.Accounts.ApplyDelta(ctx, from.AccountNumber, req.Amount.Neg(), from.Balance); err != nil {
			return err
		}
		if _, err := s.Accounts.ApplyDelta(ctx, to.AccountNumber, req.Amount, to.Balance); err != nil {
			return err
		}

		destination := to.AccountNumber
		t := &domain.Transaction{
			OwnerID:     ownerID,
			Type:        domain.TransactionWithdraw,
			Amount:      req.Amount,
			Currency:    from.Currency,
			Source:      from.AccountNumber,
			Destination: &destination,
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
