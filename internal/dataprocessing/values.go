package dataprocessing

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// naTokens are the cell contents treated as missing on ingestion and by the
// numeric parser.
var naTokens = []string{"", "NA", "N/A", "n/a", "NaN", "nan", "-nan", "null", "NULL", "None", "#N/A", "<NA>"}

func isNAToken(s string) bool {
	for _, tok := range naTokens {
		if s == tok {
			return true
		}
	}
	return false
}

// FormatValue renders a value the way it is written to CSV. Missing values
// become the empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return formatFloat(val)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case time.Time:
		return formatTime(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// formatFloat keeps a trailing ".0" on integral values so that a float column
// stays recognisable as float once written out.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// JSONValue makes a value safe for encoding/json. Non-finite floats are not
// representable in JSON and are returned as strings.
func JSONValue(v any) any {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return formatFloat(val)
		}
	case time.Time:
		return formatTime(val)
	}
	return v
}

// parseNumber converts a value to int64 or float64. ok is false when the
// value is not numeric; missing is true for nil and NA tokens.
func parseNumber(v any) (num any, missing bool, ok bool) {
	switch val := v.(type) {
	case nil:
		return nil, true, true
	case int64:
		return val, false, true
	case float64:
		if math.IsNaN(val) {
			return nil, true, true
		}
		return val, false, true
	case bool:
		if val {
			return int64(1), false, true
		}
		return int64(0), false, true
	case string:
		s := strings.TrimSpace(val)
		if isNAToken(s) {
			return nil, true, true
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, false, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if math.IsNaN(f) {
				return nil, true, true
			}
			return f, false, true
		}
		return nil, false, false
	case json.Number:
		return parseNumber(string(val))
	default:
		return nil, false, false
	}
}

// toFloat returns the numeric value of an int64 or float64.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && math.Mod(f, 1) == 0
}

// fitsInt64 reports whether int64(f) is exact. float64(math.MaxInt64)
// rounds up to 2^63, so the upper bound is exclusive.
func fitsInt64(f float64) bool {
	return f >= -(1<<63) && f < 1<<63
}

// valueKey identifies a value for equality grouping. The type tag keeps
// int64(1), float64(1) and "1" apart.
func valueKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "n:"
	case int64:
		return "i:" + strconv.FormatInt(val, 10)
	case float64:
		return "f:" + strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return "b:" + strconv.FormatBool(val)
	case string:
		return "s:" + val
	case time.Time:
		return "t:" + strconv.FormatInt(val.UnixNano(), 10)
	default:
		return "o:" + FormatValue(val)
	}
}

// compareValues orders values of possibly different types. Numbers sort
// before times, times before strings, strings before everything else.
func compareValues(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 1:
		return a.(time.Time).Compare(b.(time.Time))
	default:
		return strings.Compare(FormatValue(a), FormatValue(b))
	}
}

func typeRank(v any) int {
	switch v.(type) {
	case int64, float64, bool:
		return 0
	case time.Time:
		return 1
	case string:
		return 2
	}
	return 3
}
