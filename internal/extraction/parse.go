package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractPrompt is the shared prompt used by all engines for reading receipts
const extractPrompt = `You are a strictly factual receipt extraction engine. Carefully read all text in the image and extract the requested fields.

Return ONLY valid JSON in this exact format:
{
  "merchant_name": "store or business name as printed",
  "merchant_address": "street address as printed",
  "merchant_phone": "phone number as printed",
  "total": "grand total exactly as printed, including any currency symbol",
  "subtotal": "subtotal exactly as printed",
  "grand_total": "grand total line exactly as printed",
  "transaction_date": "purchase date exactly as printed",
  "transaction_time": "purchase date and time exactly as printed",
  "items": [
    {"description": "line item text as printed", "quantity": 1, "price": "line total as printed"}
  ]
}

Rules:
- Use only information explicitly visible in the image.
- Do not infer, guess, calculate, translate, or normalize values.
- Copy monetary values and dates verbatim, keeping their original formatting.
- If a field cannot be populated with certainty, use null.
- Do not add, remove, or rename fields.
- Do not include any text before or after the JSON.
- Do not use markdown code blocks.`

// visibleTextPrompt asks an engine to transcribe everything it can see,
// used only for fallback currency resolution
const visibleTextPrompt = `Transcribe all text visible in this document, exactly as printed. Output plain text only, one line per printed line. Do not add commentary.`

// parseFieldsJSON parses the JSON field map from an engine response
func parseFieldsJSON(text string) (*RawFields, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var fields RawFields
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return &fields, nil
}
