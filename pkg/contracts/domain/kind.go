package domain

import (
	"fmt"
	"strings"
)

// Kind is the declared representation of a column's values.
type Kind string

const (
	KindInteger Kind = "integer"
	KindFloat   Kind = "float"
	KindString  Kind = "string"
	KindDate    Kind = "date"
	KindBool    Kind = "bool"
	KindObject  Kind = "object"

	// Year and Month are conversion targets only. Converted columns are
	// stored as KindInteger.
	KindYear  Kind = "year"
	KindMonth Kind = "month"
)

// StorageKinds lists the kinds a column can carry.
var StorageKinds = []Kind{KindInteger, KindFloat, KindString, KindDate, KindBool, KindObject}

// TargetKinds lists the kinds a column can be converted to.
var TargetKinds = []Kind{KindInteger, KindFloat, KindString, KindDate, KindYear, KindMonth}

// ParseKind converts user input into a Kind. Common aliases are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "integer", "int", "int64":
		return KindInteger, nil
	case "float", "float64", "double":
		return KindFloat, nil
	case "string", "str", "text":
		return KindString, nil
	case "date", "datetime", "time":
		return KindDate, nil
	case "bool", "boolean":
		return KindBool, nil
	case "object":
		return KindObject, nil
	case "year":
		return KindYear, nil
	case "month":
		return KindMonth, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// IsNumeric reports whether values of this kind are numbers.
func (k Kind) IsNumeric() bool {
	return k == KindInteger || k == KindFloat
}

// IsStringLike reports whether the kind already stores text.
func (k Kind) IsStringLike() bool {
	return k == KindString || k == KindObject
}

// IsTarget reports whether k may be requested as a conversion target.
func (k Kind) IsTarget() bool {
	for _, t := range TargetKinds {
		if t == k {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
