package olx

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Indonesian three-letter month abbreviations, as printed on listing cards.
var monthAbbrev = [...]string{
	time.January:   "Jan",
	time.February:  "Feb",
	time.March:     "Mar",
	time.April:     "Apr",
	time.May:       "Mei",
	time.June:      "Jun",
	time.July:      "Jul",
	time.August:    "Agu",
	time.September: "Sep",
	time.October:   "Okt",
	time.November:  "Nov",
	time.December:  "Des",
}

var daysAgoRegexp = regexp.MustCompile(`(\d+)\s+hari yang lalu`)

// RelativeDate rewrites relative posting phrases ("hari ini", "kemarin",
// "N hari yang lalu") into "<day> <month>" relative to now. Any other text is
// assumed to already be a short absolute date and is returned unchanged.
func RelativeDate(raw string, now time.Time) string {
	if raw == "" {
		return raw
	}

	lower := strings.ToLower(raw)
	var target time.Time

	switch {
	case strings.Contains(lower, "hari ini"):
		target = now
	case strings.Contains(lower, "kemarin"):
		target = now.AddDate(0, 0, -1)
	default:
		m := daysAgoRegexp.FindStringSubmatch(lower)
		if m == nil {
			return raw
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return raw
		}
		target = now.AddDate(0, 0, -n)
	}

	return FormatShortDate(target)
}

// FormatShortDate renders t as "<day> <month-abbrev>", e.g. "5 Mei".
func FormatShortDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), monthAbbrev[t.Month()])
}
