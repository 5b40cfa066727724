package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyKWD Currency = "KWD"
)

// minorUnits lists currencies whose minor unit is not hundredths.
var minorUnits = map[Currency]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"ISK": 0,
	"KWD": 3,
	"BHD": 3,
	"OMR": 3,
	"JOD": 3,
	"TND": 3,
}

func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

// MinorUnits is the number of decimal places of the currency's smallest
// denomination.
func (c Currency) MinorUnits() int32 {
	if n, ok := minorUnits[c]; ok {
		return n
	}
	return 2
}

// FitsMinorUnits reports whether amount is expressible in whole minor units.
func (c Currency) FitsMinorUnits(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(c.MinorUnits()))
}

type Account struct {
	AccountNumber string
	OwnerID       string
	Currency      Currency
	Label         string
	Symbol        string
	Balance       decimal.Decimal
	Version       int64
	CreatedAt     time.Time
}

// AccountReference is the public view of someone else's account: enough to
// address a transfer, nothing about its balance.
type AccountReference struct {
	AccountNumber string
	Currency      Currency
	Label         string
	Symbol        string
}

func (a *Account) Reference() AccountReference {
	return AccountReference{
		AccountNumber: a.AccountNumber,
		Currency:      a.Currency,
		Label:         a.Label,
		Symbol:        a.Symbol,
	}
}
