// Package money holds the decimal helpers shared by the validators, the
// reconciler and the field linker.
package money

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// AbsTolerance is the absolute floor, in currency units.
	AbsTolerance = decimal.RequireFromString("0.02")
	// RelTolerance is the relative band (1%).
	RelTolerance = decimal.RequireFromString("0.01")
)

var ErrNotAmount = errors.New("not an amount")

var hundred = decimal.NewFromInt(100)

// IsClose reports whether a and b differ by at most AbsTolerance or by at
// most RelTolerance of the larger magnitude, whichever is looser.
func IsClose(a, b decimal.Decimal) bool {
	diff := a.Sub(b).Abs()
	if diff.LessThanOrEqual(AbsTolerance) {
		return true
	}
	scale := decimal.Max(a.Abs(), b.Abs())
	if scale.IsZero() {
		return true
	}
	return diff.Div(scale).LessThanOrEqual(RelTolerance)
}

// Percent returns base × rate / 100.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}

// Deref returns the pointed-to value or zero.
func Deref(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}

// Ptr returns a pointer to a copy of d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Format renders d with two fraction digits, the way amounts appear in messages.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseAmount parses a printed amount in either US or European notation:
// "1,234.56", "1.234,56", "1 234,56", "86,99", "€ 12.50".
// When both separators are present the rightmost one is the decimal point;
// a lone comma followed by exactly three digits is a thousands separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := stripNonNumeric(s)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, s)
	}

	lastComma := strings.LastIndexByte(cleaned, ',')
	lastDot := strings.LastIndexByte(cleaned, '.')
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		frac := len(cleaned) - lastComma - 1
		if strings.Count(cleaned, ",") == 1 && frac > 0 && frac != 3 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		// "1.234.567" grouping
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, s)
	}
	return d, nil
}

// CleanAmount parses user-typed text for a decimal field. Everything except
// digits and ",.-" is dropped; a comma-only value uses the comma as decimal
// point, and with both separators present commas are thousands separators.
func CleanAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	cleaned = NormalizeSeparators(cleaned)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, s)
	}
	return d, nil
}

// NormalizeSeparators applies the comma heuristic to an already stripped
// numeric string: "210,00" -> "210.00", "1,210.00" -> "1210.00".
func NormalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		return strings.ReplaceAll(s, ",", "")
	case hasComma:
		return strings.ReplaceAll(s, ",", ".")
	}
	return s
}

func stripNonNumeric(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsDigit(r), r == ',', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
