// Package core provides amount parsing for ledger records.
//
// Amounts travel as float64. Inputs may come from JSON numbers, form values
// or legacy files where the amount was stored as a string.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into a finite float64.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted, as is a
// leading sign. Zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-7,5")   -> -7.5, nil
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	// decimal rejects NaN and Inf spellings, so the result is always finite.
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}
