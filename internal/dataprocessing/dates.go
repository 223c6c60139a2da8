package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order. Month-first wins over day-first for
// ambiguous slash dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1-2-2006",
	"2006.1.2",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"Mon, 2 Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"20060102",
	"2006-01",
	"Jan 2006",
	"January 2006",
	"2006",
}

// parseDate interprets a value as a calendar date. Numbers are read through
// their decimal form, so 2021 and 20210315 parse while 42 does not.
func parseDate(v any) (time.Time, bool) {
	switch val := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return val, true
	case int64:
		return parseDateString(strconv.FormatInt(val, 10))
	case float64:
		if !isIntegral(val) || math.Abs(val) > math.MaxInt64 {
			return time.Time{}, false
		}
		return parseDateString(strconv.FormatInt(int64(val), 10))
	case string:
		return parseDateString(val)
	}
	return time.Time{}, false
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isNAToken(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
