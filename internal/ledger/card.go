package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// cardIIN prefixes every issued card number.
const cardIIN = "4"

const (
	cardNumberDigits = 16
	cvvDigits        = 3
)

// CreateCard issues the owner's only card in the home currency. The CVV is
// returned here once and kept only as a bcrypt hash.
func (e *Engine) CreateCard(ctx context.Context, ownerID string, initialAmount decimal.Decimal) (*domain.IssuedCard, error) {
	const op = "CreateCard"
	currency := e.opts.HomeCurrency

	if err := validAmount(initialAmount, currency, true); err != nil {
		return nil, opError(op, initialAmount, err)
	}
	if _, err := e.stores.Cards.GetByOwner(ctx, ownerID); err == nil {
		return nil, opError(op, initialAmount, domain.ErrCardExists)
	} else if !errors.Is(err, domain.ErrCardNotFound) {
		return nil, opError(op, initialAmount, err)
	}

	cvv, err := randomDigits(cvvDigits)
	if err != nil {
		return nil, opError(op, initialAmount, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cvv), e.opts.CVVCost)
	if err != nil {
		return nil, opError(op, initialAmount, fmt.Errorf("hash cvv: %w", err))
	}

	for range maxNumberAttempts {
		number, err := newCardNumber()
		if err != nil {
			return nil, opError(op, initialAmount, err)
		}

		card := &domain.Card{
			ID:       uuid.New(),
			OwnerID:  ownerID,
			Number:   number,
			Currency: currency,
			Balance:  initialAmount,
			CVVHash:  string(hash),
		}

		err = e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
			if err := s.Cards.Create(ctx, card); err != nil {
				return err
			}
			if !initialAmount.IsPositive() {
				return nil
			}
			return s.Transactions.Append(ctx, &domain.Transaction{
				OwnerID:  ownerID,
				Type:     domain.TransactionDeposit,
				Amount:   initialAmount,
				Currency: currency,
				Source:   card.ID.String(),
			})
		})
		if errors.Is(err, domain.ErrDuplicateNumber) {
			continue
		}
		if err != nil {
			return nil, opError(op, initialAmount, err, card.ID.String())
		}
		return &domain.IssuedCard{Card: *card, CVV: cvv}, nil
	}

	return nil, opError(op, initialAmount,
		fmt.Errorf("no free card number after %d attempts: %w", maxNumberAttempts, domain.ErrDuplicateNumber))
}

func newCardNumber() (string, error) {
	body, err := randomDigits(cardNumberDigits - len(cardIIN) - 1)
	if err != nil {
		return "", fmt.Errorf("newCardNumber: %w", err)
	}
	payload := cardIIN + body
	return payload + string(domain.LuhnCheckDigit(payload)), nil
}

// VerifyCVV reports whether cvv matches the card's stored hash.
func VerifyCVV(card *domain.Card, cvv string) bool {
	return bcrypt.CompareHashAndPassword([]byte(card.CVVHash), []byte(cvv)) == nil
}

func (e *Engine) GetCard(ctx context.Context, ownerID string) (*domain.Card, error) {
	card, err := e.stores.Cards.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, opError("GetCard", decimal.Zero, err)
	}
	return card, nil
}

// CardCredit tops the owner's card up with money from outside the ledger.
func (e *Engine) CardCredit(ctx context.Context, ownerID string, amount decimal.Decimal) (*domain.Transaction, error) {
	return e.moveCard(ctx, "CardCredit", ownerID, amount, domain.TransactionCredit)
}

// CardDebit spends from the owner's card; the money leaves the ledger.
func (e *Engine) CardDebit(ctx context.Context, ownerID string, amount decimal.Decimal) (*domain.Transaction, error) {
	return e.moveCard(ctx, "CardDebit", ownerID, amount, domain.TransactionDebit)
}

func (e *Engine) moveCard(ctx context.Context, op, ownerID string, amount decimal.Decimal, kind domain.TransactionType) (*domain.Transaction, error) {
	if err := validAmount(amount, e.opts.HomeCurrency, false); err != nil {
		return nil, opError(op, amount, err)
	}

	card, err := e.stores.Cards.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, opError(op, amount, err)
	}
	ref := card.ID.String()

	delta := amount
	if kind == domain.TransactionDebit {
		delta = amount.Neg()
	}

	var txn *domain.Transaction
	err = e.mutate(ctx, op, []string{cardKey(ref)}, func(ctx context.Context, s Stores) error {
		current, err := s.Cards.GetByID(ctx, card.ID)
		if err != nil {
			return err
		}
		if kind == domain.TransactionDebit && current.Balance.LessThan(amount) {
			return fmt.Errorf("card balance %s: %w", current.Balance, domain.ErrInsufficientFunds)
		}
		if _, err := s.Cards.ApplyDelta(ctx, card.ID, delta, current.Balance); err != nil {
			return err
		}

		t := &domain.Transaction{
			OwnerID:  ownerID,
			Type:     kind,
			Amount:   amount,
			Currency: current.Currency,
			Source:   ref,
		}
		if err := s.Transactions.Append(ctx, t); err != nil {
			return err
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, opError(op, amount, err, ref)
	}
	return txn, nil
}
