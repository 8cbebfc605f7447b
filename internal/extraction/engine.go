package extraction

import (
	"context"
	"encoding/json"
	"strings"
)

// RawFields is the loosely typed field map produced by an extraction engine.
// Absent fields are empty strings; engines are instructed to emit null for
// values they cannot read, which also unmarshals to the empty string.
type RawFields struct {
	MerchantName    string    `json:"merchant_name"`
	MerchantAddress string    `json:"merchant_address"`
	MerchantPhone   string    `json:"merchant_phone"`
	Total           FreeText  `json:"total"`
	Subtotal        FreeText  `json:"subtotal"`
	GrandTotal      FreeText  `json:"grand_total"`
	TransactionDate string    `json:"transaction_date"`
	TransactionTime string    `json:"transaction_time"`
	Items           []RawItem `json:"items"`
}

// RawItem is one purchased line as reported by an engine, all values free text.
type RawItem struct {
	Description string   `json:"description"`
	Quantity    FreeText `json:"quantity"`
	Price       FreeText `json:"price"`
}

// FreeText is a loosely typed scalar from an engine payload. Engines emit the
// same field as a JSON string or a JSON number depending on the document, so
// both forms unmarshal to their text representation.
type FreeText string

// UnmarshalJSON accepts strings, numbers and null.
func (t *FreeText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = FreeText(s)
		return nil
	}
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*t = ""
		return nil
	}
	*t = FreeText(raw)
	return nil
}

// Engine defines the interface for receipt extraction engines. An engine is an
// opaque capability that analyzes a receipt image and returns a raw field map.
type Engine interface {
	// Name identifies the engine; normalized records carry it as their source tag
	Name() string
	// Extract analyzes a receipt image/PDF and returns the raw field map
	Extract(ctx context.Context, imageData []byte, contentType string) (*RawFields, error)
	// Close closes the engine and releases resources
	Close() error
}

// TextExtractor is implemented by engines that can additionally return the
// visible text of a document. It is used for fallback currency resolution when
// the structured output omits the currency.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageData []byte, contentType string) (string, error)
}
