package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

const accountNumberDigits = 10

type CreateAccountRequest struct {
	Currency      domain.Currency
	Label         string
	Symbol        string
	InitialAmount decimal.Decimal
}

// CreateAccount opens the owner's account in req.Currency. A positive initial
// amount is recorded as a DEPOSIT in the same unit of work.
func (e *Engine) CreateAccount(ctx context.Context, ownerID string, req CreateAccountRequest) (*domain.Account, error) {
	const op = "CreateAccount"

	if err := e.knownCurrency(req.Currency); err != nil {
		return nil, opError(op, req.InitialAmount, err)
	}
	if err := validAmount(req.InitialAmount, req.Currency, true); err != nil {
		return nil, opError(op, req.InitialAmount, err)
	}

	for range maxNumberAttempts {
		number, err := randomDigits(accountNumberDigits)
		if err != nil {
			return nil, opError(op, req.InitialAmount, err)
		}

		account := &domain.Account{
			AccountNumber: number,
			OwnerID:       ownerID,
			Currency:      req.Currency,
			Label:         req.Label,
			Symbol:        req.Symbol,
			Balance:       req.InitialAmount,
		}

		err = e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
			if err := s.Accounts.Create(ctx, account); err != nil {
				return err
			}
			if !req.InitialAmount.IsPositive() {
				return nil
			}
			return s.Transactions.Append(ctx, &domain.Transaction{
				OwnerID:  ownerID,
				Type:     domain.TransactionDeposit,
				Amount:   req.InitialAmount,
				Currency: req.Currency,
				Source:   number,
			})
		})
		if errors.Is(err, domain.ErrDuplicateNumber) {
			continue
		}
		if err != nil {
			return nil, opError(op, req.InitialAmount, err, number)
		}
		return account, nil
	}

	return nil, opError(op, req.InitialAmount,
		fmt.Errorf("no free account number after %d attempts: %w", maxNumberAttempts, domain.ErrDuplicateNumber))
}

type FindAccountRequest struct {
	Currency      domain.Currency
	AccountNumber string
}

// FindAccount resolves any user's account so it can be addressed by a
// transfer. The result carries no balance.
func (e *Engine) FindAccount(ctx context.Context, req FindAccountRequest) (*domain.AccountReference, error) {
	const op = "FindAccount"

	account, err := e.stores.Accounts.GetByNumber(ctx, req.AccountNumber)
	if errors.Is(err, domain.ErrAccountNotFound) || (err == nil && account.Currency != req.Currency) {
		return nil, opError(op, decimal.Zero, domain.ErrNotFound, req.AccountNumber)
	}
	if err != nil {
		return nil, opError(op, decimal.Zero, err, req.AccountNumber)
	}

	ref := account.Reference()
	return &ref, nil
}

// GetUserAccounts lists the owner's accounts in creation order.
func (e *Engine) GetUserAccounts(ctx context.Context, ownerID string) ([]domain.Account, error) {
	accounts, err := e.stores.Accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, opError("GetUserAccounts", decimal.Zero, err)
	}
	return accounts, nil
}

func (e *Engine) Rates(ctx context.Context) map[domain.Currency]decimal.Decimal {
	return e.rates.AllRates()
}
