package receipt

import (
	"errors"
	"strconv"
	"strings"

	"github.com/serdark/receipt-recon/internal/extraction"
)

// ErrInvalidInput is returned when a normalization request is structurally
// malformed rather than merely incomplete.
var ErrInvalidInput = errors.New("invalid extraction payload")

// Normalize converts one engine's raw field map into a canonical Record
// stamped with the given source tag. It is a pure function of its input:
// missing or unparsable field values become nil fields, never errors. Only a
// structurally absent payload fails the call.
func Normalize(raw *extraction.RawFields, source string) (*Record, error) {
	if raw == nil {
		return nil, ErrInvalidInput
	}

	rec := &Record{Source: source}

	if merchant := firstNonEmpty(raw.MerchantName, raw.MerchantAddress, raw.MerchantPhone); merchant != "" {
		rec.Merchant = &merchant
	}

	totalRaw := firstNonEmpty(string(raw.Total), string(raw.Subtotal), string(raw.GrandTotal))
	rec.Total, rec.Currency = ParseAmountAndCurrency(totalRaw)

	if dateRaw := firstNonEmpty(raw.TransactionDate, raw.TransactionTime); dateRaw != "" {
		if parsed, ok := ParseDate(dateRaw); ok {
			iso := parsed.ISO()
			rec.TransactionDate = &iso
		} else {
			// best-effort preservation: keep the raw string rather than drop it
			rec.TransactionDate = &dateRaw
		}
	}

	for _, it := range raw.Items {
		item := LineItem{Price: ParseAmount(string(it.Price))}
		if it.Description != "" {
			name := it.Description
			item.Name = &name
		}
		if qty := strings.TrimSpace(string(it.Quantity)); qty != "" {
			if value, err := strconv.ParseFloat(qty, 64); err == nil {
				item.Quantity = &value
			}
		}
		rec.Items = append(rec.Items, item)
	}

	return rec, nil
}

// firstNonEmpty returns the first candidate with visible content, keeping
// fallback precedence explicit and auditable.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return ""
}
