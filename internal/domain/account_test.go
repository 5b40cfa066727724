package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCurrencyMinorUnits(t *testing.T) {
	tests := []struct {
		currency Currency
		amount   string
		units    int32
		fits     bool
	}{
		{CurrencyUSD, "10.25", 2, true},
		{CurrencyUSD, "10.255", 2, false},
		{CurrencyJPY, "100", 0, true},
		{CurrencyJPY, "100.5", 0, false},
		{CurrencyKWD, "1.125", 3, true},
		{CurrencyKWD, "1.1255", 3, false},
		{"NGN", "1.10", 2, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.currency)+" "+tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.units, tt.currency.MinorUnits())
			assert.Equal(t, tt.fits, tt.currency.FitsMinorUnits(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestCurrencyIsValid(t *testing.T) {
	assert.True(t, CurrencyEUR.IsValid())
	assert.False(t, Currency("eur").IsValid())
	assert.False(t, Currency("EURO").IsValid())
	assert.False(t, Currency("").IsValid())
}

func TestAccountReferenceHidesBalance(t *testing.T) {
	a := &Account{
		AccountNumber: "0123456789",
		OwnerID:       "alice",
		Currency:      CurrencyUSD,
		Label:         "Main",
		Symbol:        "$",
		Balance:       decimal.NewFromInt(100),
	}

	assert.Equal(t, AccountReference{AccountNumber: "0123456789", Currency: CurrencyUSD, Label: "Main", Symbol: "$"}, a.Reference())
}

func TestLuhn(t *testing.T) {
	assert.True(t, LuhnValid("4111111111111111"))
	assert.True(t, LuhnValid("79927398713"))
	assert.False(t, LuhnValid("4111111111111112"))
	assert.False(t, LuhnValid("4111-1111"))
	assert.False(t, LuhnValid(""))

	for _, payload := range []string{"411111111111111", "7992739871", "400000000000000"} {
		digit := LuhnCheckDigit(payload)
		assert.True(t, LuhnValid(payload+string(digit)), payload)
	}
	assert.Equal(t, byte('3'), LuhnCheckDigit("7992739871"))
}
