package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/josh-kwaku/bank-ledger/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// SeedAccount inserts an account directly, bypassing the ledger. Its balance
// has no matching transaction, so an audit will flag it unless balance is zero.
func SeedAccount(t *testing.T, db *sql.DB, number, ownerID string, currency domain.Currency, balance string) *domain.Account {
	t.Helper()

	a := &domain.Account{
		AccountNumber: number,
		OwnerID:       ownerID,
		Currency:      currency,
		Label:         ownerID + " " + string(currency),
		Balance:       decimal.RequireFromString(balance),
		CreatedAt:     time.Now().UTC(),
	}

	_, err := db.Exec(
		`INSERT INTO accounts (account_number, owner_id, currency, label, symbol, balance, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.AccountNumber, a.OwnerID, a.Currency, a.Label, a.Symbol, a.Balance, a.Version, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s/%s: %v", ownerID, currency, err)
	}
	return a
}

func SeedCard(t *testing.T, db *sql.DB, ownerID, number string, balance string) *domain.Card {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash cvv: %v", err)
	}
	c := &domain.Card{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Number:    number,
		Currency:  domain.CurrencyUSD,
		Balance:   decimal.RequireFromString(balance),
		CVVHash:   string(hash),
		CreatedAt: time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO cards (id, owner_id, number, currency, balance, version, cvv_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.OwnerID, c.Number, c.Currency, c.Balance, c.Version, c.CVVHash, c.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed card for %s: %v", ownerID, err)
	}
	return c
}

func GetAccountBalance(t *testing.T, db *sql.DB, number string) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	err := db.QueryRow(`SELECT balance FROM accounts WHERE account_number = $1`, number).Scan(&balance)
	if err != nil {
		t.Fatalf("get account balance %s: %v", number, err)
	}
	return balance
}

// CountTransactions counts log entries with ref as source or destination.
func CountTransactions(t *testing.T, db *sql.DB, ref string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE source = $1 OR destination = $1`, ref).Scan(&count)
	if err != nil {
		t.Fatalf("count transactions for %s: %v", ref, err)
	}
	return count
}
