package receipt

import "time"

// LineItem represents one purchased line on a receipt. Items carry no identity
// beyond their field values; duplicate lines are interchangeable.
type LineItem struct {
	Name     *string  `json:"name"`
	Quantity *float64 `json:"quantity"`
	Price    *float64 `json:"price"`
}

// Record is the canonical, engine-agnostic representation of one receipt's
// extracted fields. Total, when present, is a bare non-negative decimal;
// Currency, when present, is a bare 3-letter code; TransactionDate is an
// ISO-8601 string, or the raw engine text when no known date format matched.
// Source identifies the engine that produced the input and is never mutated
// after normalization.
type Record struct {
	Merchant        *string    `json:"merchant"`
	Total           *float64   `json:"total"`
	Currency        *string    `json:"currency"`
	TransactionDate *string    `json:"transaction_date"`
	Items           []LineItem `json:"items"`
	Source          string     `json:"source"`
}

// Analysis is one processed upload: the stored file metadata, the normalized
// record per engine, and the diff report when both engines ran.
type Analysis struct {
	ID          string      `json:"id"`
	Filename    string      `json:"filename"`
	ContentType string      `json:"content_type"`
	Mode        string      `json:"mode"`
	Records     []*Record   `json:"records"`
	Diff        *DiffReport `json:"diff,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
