package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a ledger amount such as "1.234,56", "-12.50" or
// "EUR 99,95" into a decimal. Unparseable input yields decimal.Zero.
func ParseAmount(amountStr string) decimal.Decimal {
	amount := strings.TrimSpace(amountStr)
	for _, symbol := range []string{"EUR", "USD", "CHF", "€", "$", " ", "'"} {
		amount = strings.ReplaceAll(amount, symbol, "")
	}

	// With both separators present, the last one is the decimal separator
	lastComma := strings.LastIndex(amount, ",")
	lastDot := strings.LastIndex(amount, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		amount = strings.ReplaceAll(amount, ".", "")
		amount = strings.Replace(amount, ",", ".", 1)
	case lastComma >= 0 && lastDot >= 0:
		amount = strings.ReplaceAll(amount, ",", "")
	case lastComma >= 0:
		amount = strings.ReplaceAll(amount, ",", ".")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero
	}
	return dec
}
