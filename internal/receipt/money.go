package receipt

import (
	"strconv"
	"strings"
	"unicode"
)

// currencySymbols maps leading currency symbols to ISO codes. Resolution is
// first-match-wins, so the table order is significant.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"₺", "TRY"},
}

// currencyTokens maps textual currency tokens to ISO codes.
var currencyTokens = []struct {
	token string
	code  string
}{
	{"TRY", "TRY"},
	{"TL", "TRY"},
	{"USD", "USD"},
	{"EUR", "EUR"},
}

// ParseAmountAndCurrency parses a free-text monetary value into an amount and
// an ISO currency code. Either part may be nil: the currency survives even
// when the amount fails to parse.
//
// Examples:
//
//	"$2,516.28"    -> 2516.28, USD
//	"14,99 TL"     -> 14.99, TRY
//	"EUR 1 203,39" -> 1203.39, EUR
func ParseAmountAndCurrency(text string) (*float64, *string) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, nil
	}

	var currency *string

	// symbol prefix
	for _, s := range currencySymbols {
		if strings.HasPrefix(raw, s.symbol) {
			code := s.code
			currency = &code
			raw = strings.TrimSpace(strings.TrimPrefix(raw, s.symbol))
			break
		}
	}

	// text prefix
	if currency == nil {
		upper := strings.ToUpper(raw)
		for _, t := range currencyTokens {
			if strings.HasPrefix(upper, t.token+" ") {
				code := t.code
				currency = &code
				raw = strings.TrimSpace(raw[len(t.token):])
				break
			}
		}
	}

	// text suffix, separated from the amount by any whitespace
	if currency == nil {
		upper := strings.ToUpper(raw)
		for _, t := range currencyTokens {
			if !strings.HasSuffix(upper, t.token) {
				continue
			}
			rest := raw[:len(raw)-len(t.token)]
			trimmed := strings.TrimRightFunc(rest, unicode.IsSpace)
			if len(trimmed) < len(rest) {
				code := t.code
				currency = &code
				raw = trimmed
				break
			}
		}
	}

	// normalize spaces
	raw = strings.ReplaceAll(raw, " ", "")

	value, err := strconv.ParseFloat(normalizeSeparators(raw), 64)
	if err != nil {
		return nil, currency
	}

	return &value, currency
}

// ParseAmount extracts a bare numeric amount from free text, keeping only
// digits and separator characters before parsing. It returns nil on any parse
// failure or empty result.
func ParseAmount(text string) *float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}

	cleaned := normalizeSeparators(b.String())
	if cleaned == "" {
		return nil
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}

	return &value
}

// normalizeSeparators applies the comma/dot disambiguation: when both appear,
// the comma is a thousands separator; a lone comma is the decimal point.
// Known limitation: a single separator with three trailing digits is
// ambiguous ("1.234"), and dot-only inputs are never treated as
// thousands-grouped, which can misread some European-formatted amounts.
func normalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		return strings.ReplaceAll(s, ",", "")
	case hasComma:
		return strings.ReplaceAll(s, ",", ".")
	default:
		return s
	}
}
