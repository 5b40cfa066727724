package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Card struct {
	ID        uuid.UUID
	OwnerID   string
	Number    string
	Currency  Currency
	Balance   decimal.Decimal
	Version   int64
	CVVHash   string
	CreatedAt time.Time
}

// IssuedCard is returned once, at creation. CVV is never stored in clear.
type IssuedCard struct {
	Card
	CVV string
}

// LuhnValid reports whether number passes the mod-10 check.
func LuhnValid(number string) bool {
	if number == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		n := int(c - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return sum%10 == 0
}

// LuhnCheckDigit returns the digit that makes payload+digit Luhn-valid.
func LuhnCheckDigit(payload string) byte {
	sum := 0
	double := true
	for i := len(payload) - 1; i >= 0; i-- {
		n := int(payload[i] - '0')
		if double {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		sum += n
		double = !double
	}
	return byte('0' + (10-sum%10)%10)
}
