package receipt

import "strings"

// ocrSymbols is the symbol table for visible-text currency resolution, scanned
// in order with first match winning.
var ocrSymbols = []struct {
	symbol string
	code   string
}{
	{"$", "USD"},
	{"€", "EUR"},
	{"₺", "TRY"},
}

// ResolveCurrency resolves an ISO currency code from currency symbols visible
// anywhere in free text. It returns "" when no known symbol is present. Used
// only as a fallback when an engine's structured output omits the currency.
func ResolveCurrency(text string) string {
	if text == "" {
		return ""
	}

	for _, s := range ocrSymbols {
		if strings.Contains(text, s.symbol) {
			return s.code
		}
	}

	return ""
}
