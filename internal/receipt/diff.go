package receipt

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// Item diff statuses.
const (
	StatusMatched        = "matched"
	StatusMissingOnLeft  = "missing_on_left"
	StatusMissingOnRight = "missing_on_right"
)

// FieldDiff is the comparison result for one top-level receipt field.
// Match is exact equality, with no tolerance, case-folding or locale
// awareness; two absent values are equal.
type FieldDiff struct {
	Field string `json:"field"`
	Left  any    `json:"left_value"`
	Right any    `json:"right_value"`
	Match bool   `json:"match"`
}

// ItemDiff pairs at most one item from each side under a shared matching key.
type ItemDiff struct {
	Key    string    `json:"key"`
	Left   *LineItem `json:"left_item"`
	Right  *LineItem `json:"right_item"`
	Status string    `json:"status"`
}

// DiffReport is the deterministic comparison between two canonical records
// produced from the same document by different engines.
type DiffReport struct {
	Fields              []FieldDiff `json:"fields"`
	Items               []ItemDiff  `json:"items"`
	MatchedCount        int         `json:"matched_count"`
	MissingOnLeftCount  int         `json:"missing_on_left_count"`
	MissingOnRightCount int         `json:"missing_on_right_count"`
	Summary             string      `json:"summary"`
}

// Reconcile builds a strict, deterministic diff between two canonical records.
// Top-level fields are compared by direct equality. Line items are matched
// using a strict key (normalized name, quantity, price) without semantic or
// fuzzy inference; duplicate identical lines each consume one slot. Neither
// input record is modified.
func Reconcile(left, right *Record) *DiffReport {
	report := &DiffReport{
		Fields: []FieldDiff{
			stringFieldDiff("merchant", left.Merchant, right.Merchant),
			floatFieldDiff("total", left.Total, right.Total),
			stringFieldDiff("currency", left.Currency, right.Currency),
			stringFieldDiff("transaction_date", left.TransactionDate, right.TransactionDate),
		},
	}

	leftBag := newItemBag(left.Items)
	rightBag := newItemBag(right.Items)

	for _, key := range sortedUnionKeys(leftBag, rightBag) {
		// consume pairs for duplicates
		for {
			leftItem, leftOK := leftBag.pop(key)
			rightItem, rightOK := rightBag.pop(key)
			if !leftOK && !rightOK {
				break
			}

			diff := ItemDiff{Key: key.String()}
			switch {
			case leftOK && rightOK:
				diff.Left = &leftItem
				diff.Right = &rightItem
				diff.Status = StatusMatched
				report.MatchedCount++
			case leftOK:
				diff.Left = &leftItem
				diff.Status = StatusMissingOnRight
				report.MissingOnRightCount++
			default:
				diff.Right = &rightItem
				diff.Status = StatusMissingOnLeft
				report.MissingOnLeftCount++
			}
			report.Items = append(report.Items, diff)
		}
	}

	report.Summary = summarize(report)
	return report
}

func summarize(r *DiffReport) string {
	var mismatched []string
	for _, f := range r.Fields {
		if !f.Match {
			mismatched = append(mismatched, f.Field)
		}
	}

	parts := make([]string, 0, 2)
	if len(mismatched) > 0 {
		parts = append(parts, "Field mismatches: "+strings.Join(mismatched, ", "))
	} else {
		parts = append(parts, "Top-level fields match.")
	}
	parts = append(parts, fmt.Sprintf(
		"Items: matched=%d, missing_on_left=%d, missing_on_right=%d",
		r.MatchedCount, r.MissingOnLeftCount, r.MissingOnRightCount,
	))

	return strings.Join(parts, " | ")
}

// itemKey is the strict matching key for line items: normalized name plus
// quantity and price rounded to two decimal places. The has flags keep an
// absent value distinct from a zero value.
type itemKey struct {
	name     string
	hasName  bool
	quantity float64
	hasQty   bool
	price    float64
	hasPrice bool
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func keyFor(item LineItem) itemKey {
	var key itemKey
	if item.Name != nil {
		// collapse whitespace into single spaces, then case-fold; a present
		// but empty name stays distinct from an absent one
		name := strings.TrimSpace(whitespaceRun.ReplaceAllString(*item.Name, " "))
		key.name = cases.Fold().String(name)
		key.hasName = true
	}
	if item.Quantity != nil {
		key.quantity = roundCents(*item.Quantity)
		key.hasQty = true
	}
	if item.Price != nil {
		key.price = roundCents(*item.Price)
		key.hasPrice = true
	}
	return key
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// String renders the key for the diff output, with "null" standing in for
// absent parts.
func (k itemKey) String() string {
	name, qty, price := "null", "null", "null"
	if k.hasName {
		name = k.name
	}
	if k.hasQty {
		qty = strconv.FormatFloat(k.quantity, 'f', -1, 64)
	}
	if k.hasPrice {
		price = strconv.FormatFloat(k.price, 'f', -1, 64)
	}
	return fmt.Sprintf("(%s, %s, %s)", name, qty, price)
}

// sortTuple is the key's ordering form: absent parts sort as the empty string
// or zero.
func (k itemKey) sortTuple() (string, float64, float64) {
	return k.name, k.quantity, k.price
}

func (k itemKey) presenceRank() int {
	rank := 0
	if k.hasName {
		rank |= 4
	}
	if k.hasQty {
		rank |= 2
	}
	if k.hasPrice {
		rank |= 1
	}
	return rank
}

// itemBag is a multiset of line items grouped by matching key. Popping removes
// one item per call, so duplicate identical lines each consume one slot.
type itemBag struct {
	groups map[itemKey][]LineItem
}

func newItemBag(items []LineItem) *itemBag {
	bag := &itemBag{groups: make(map[itemKey][]LineItem)}
	for _, item := range items {
		key := keyFor(item)
		bag.groups[key] = append(bag.groups[key], item)
	}
	return bag
}

// pop removes and returns one item stored under key, reporting false when the
// key is exhausted.
func (b *itemBag) pop(key itemKey) (LineItem, bool) {
	group := b.groups[key]
	if len(group) == 0 {
		return LineItem{}, false
	}
	item := group[0]
	b.groups[key] = group[1:]
	return item, true
}

// sortedUnionKeys returns every distinct key present in either bag, in
// ascending (name, quantity, price) order.
func sortedUnionKeys(left, right *itemBag) []itemKey {
	seen := make(map[itemKey]struct{}, len(left.groups)+len(right.groups))
	keys := make([]itemKey, 0, len(left.groups)+len(right.groups))
	for key := range left.groups {
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for key := range right.groups {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		iName, iQty, iPrice := keys[i].sortTuple()
		jName, jQty, jPrice := keys[j].sortTuple()
		if iName != jName {
			return iName < jName
		}
		if iQty != jQty {
			return iQty < jQty
		}
		if iPrice != jPrice {
			return iPrice < jPrice
		}
		// an absent value ties with a zero value above; absent sorts first
		return keys[i].presenceRank() < keys[j].presenceRank()
	})

	return keys
}

func stringFieldDiff(field string, left, right *string) FieldDiff {
	return FieldDiff{
		Field: field,
		Left:  stringValue(left),
		Right: stringValue(right),
		Match: equalStrings(left, right),
	}
}

func floatFieldDiff(field string, left, right *float64) FieldDiff {
	return FieldDiff{
		Field: field,
		Left:  floatValue(left),
		Right: floatValue(right),
		Match: equalFloats(left, right),
	}
}

func equalStrings(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalFloats(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func stringValue(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatValue(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
