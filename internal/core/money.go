package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var spaceReplacer = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "\u2009", "")

// ParseAmount converts an amount cell from the export to a decimal.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, a leading sign
// and thousands separated by regular, no-break or thin spaces ("-1 234,56").
func ParseAmount(s string) (decimal.Decimal, error) {
	s = spaceReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.Replace(s, "\u2212", "-", 1)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseOptionalAmount is ParseAmount that maps an empty cell to zero.
func ParseOptionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}

// Round2 rounds half away from zero to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
