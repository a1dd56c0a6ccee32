package canvas

import (
	"strings"
	"time"
)

// dateLayouts are tried in order against trimmed input. The first two
// cover the canonical form and the loose single-digit form agents
// commonly produce.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// NormalizeDate parses a date expression and renders it as YYYY-MM-DD
// in UTC. The second return is false when the input is unparseable, in
// which case callers must leave their payload unchanged.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}
