package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ListTransactions pages through everything the owner initiated.
func (e *Engine) ListTransactions(ctx context.Context, ownerID string, page domain.PageRequest) (*domain.TransactionPage, error) {
	res, err := e.stores.Transactions.FindPage(ctx, domain.TransactionFilter{OwnerID: ownerID}, page)
	if err != nil {
		return nil, opError("ListTransactions", decimal.Zero, err)
	}
	return res, nil
}

// ListAccountTransactions pages through every transaction touching one of
// the owner's accounts, including transfers received from other users.
func (e *Engine) ListAccountTransactions(ctx context.Context, ownerID, accountNumber string, page domain.PageRequest) (*domain.TransactionPage, error) {
	const op = "ListAccountTransactions"

	account, err := e.stores.Accounts.GetByNumber(ctx, accountNumber)
	if err != nil {
		return nil, opError(op, decimal.Zero, err, accountNumber)
	}
	if account.OwnerID != ownerID {
		return nil, opError(op, decimal.Zero, domain.ErrAccountNotFound, accountNumber)
	}

	res, err := e.stores.Transactions.FindPage(ctx, domain.TransactionFilter{Account: accountNumber}, page)
	if err != nil {
		return nil, opError(op, decimal.Zero, err, accountNumber)
	}
	return res, nil
}

func (e *Engine) ListCardTransactions(ctx context.Context, ownerID string, cardID uuid.UUID, page domain.PageRequest) (*domain.TransactionPage, error) {
	const op = "ListCardTransactions"
	ref := cardID.String()

	card, err := e.stores.Cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, opError(op, decimal.Zero, err, ref)
	}
	if card.OwnerID != ownerID {
		return nil, opError(op, decimal.Zero, domain.ErrCardNotFound, ref)
	}

	res, err := e.stores.Transactions.FindPage(ctx, domain.TransactionFilter{Card: ref}, page)
	if err != nil {
		return nil, opError(op, decimal.Zero, err, ref)
	}
	return res, nil
}
