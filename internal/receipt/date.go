package receipt

import (
	"strings"
	"time"
)

// dateLayouts is the ordered list of accepted receipt date formats. The first
// layout that parses wins.
var dateLayouts = []struct {
	layout  string
	hasTime bool
}{
	{"1/2/2006 15:04", true},
	{"1/2/2006", false},
	{"2.1.2006", false},
	{"2006-01-02", false},
}

// ParsedDate is a calendar date with an optional time of day.
type ParsedDate struct {
	Time    time.Time
	HasTime bool
}

// ISO renders the date as ISO-8601: a bare calendar date, or a full timestamp
// when the input carried a time of day.
func (d ParsedDate) ISO() string {
	if d.HasTime {
		return d.Time.Format("2006-01-02T15:04:05")
	}
	return d.Time.Format("2006-01-02")
}

// ParseDate parses a free-text receipt date. It reports false when no known
// format matches.
func ParseDate(text string) (ParsedDate, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ParsedDate{}, false
	}

	for _, f := range dateLayouts {
		if t, err := time.Parse(f.layout, trimmed); err == nil {
			return ParsedDate{Time: t, HasTime: f.hasTime}, true
		}
	}

	return ParsedDate{}, false
}
