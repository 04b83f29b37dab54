package core

import (
	"encoding/json"
	"reflect"
	"strconv"
)

// Record is a single row in a collection. Values hold whatever JSON gives
// back: float64 for numbers, string, bool, or nil.
type Record map[string]any

// ID returns the record's numeric id, or 0 when absent or non-numeric.
func (r Record) ID() int64 {
	n, ok := NumericValue(r["id"])
	if !ok {
		return 0
	}
	return int64(n)
}

// Clone returns a shallow copy of the record. Values are scalars, so a
// shallow copy is enough to keep callers from reaching into the store.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NumericValue reports v as a float64 if it is any numeric type.
func NumericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// ValuesEqual compares a stored value against a query parameter. Numbers
// compare numerically regardless of concrete type; everything else compares
// strictly, so the string "1" never equals the number 1.
func ValuesEqual(a, b any) bool {
	if an, ok := NumericValue(a); ok {
		bn, bok := NumericValue(b)
		return bok && an == bn
	}
	if as, ok := a.(string); ok {
		bs, bok := b.(string)
		return bok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, bok := b.(bool)
		return bok && ab == bb
	}
	return reflect.DeepEqual(a, b)
}

// CompareValues orders two values: numerically when both are numeric,
// lexicographically otherwise.
func CompareValues(a, b any) int {
	an, aok := NumericValue(a)
	bn, bok := NumericValue(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	}

	as := stringValue(a)
	bs := stringValue(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
