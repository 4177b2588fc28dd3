package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"conference-registration-platform/internal/models"
)

// zeroDecimalCurrencies are the ISO codes whose minor unit equals the major
// unit, so amounts pass to the gateway unscaled.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true,
	"JPY": true, "KMF": true, "KRW": true, "MGA": true,
	"PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// IsZeroDecimalCurrency returns true for currencies without a minor unit
func IsZeroDecimalCurrency(currency string) bool {
	return zeroDecimalCurrencies[strings.ToUpper(currency)]
}

// ToMinorUnits converts a decimal amount to the gateway's integer minor
// units: cents for most currencies, whole units for zero-decimal ones.
// Returns models.ErrInvalidAmount when the amount does not land on an exact
// minor unit.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	scaled := amount
	if !IsZeroDecimalCurrency(currency) {
		scaled = amount.Mul(decimal.NewFromInt(100))
	}

	if !scaled.IsInteger() {
		return 0, models.ErrInvalidAmount
	}

	return scaled.IntPart(), nil
}

// FromMinorUnits converts the gateway's integer minor units back to a
// decimal amount
func FromMinorUnits(minor int64, currency string) decimal.Decimal {
	amount := decimal.NewFromInt(minor)
	if IsZeroDecimalCurrency(currency) {
		return amount
	}
	return amount.Div(decimal.NewFromInt(100))
}

// ObfuscateKey masks a secret key for logs, keeping only the last four
// characters to identify which key was used
func ObfuscateKey(key string) string {
	if len(key) < 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
