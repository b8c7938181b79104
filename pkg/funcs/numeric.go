package funcs

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrUnsupportedOperands is returned when a reduction cannot combine two values.
var ErrUnsupportedOperands = errors.New("unsupported operands")

// Normalize maps every Go integer kind to int64 and float32 to float64, so
// values built in memory compare equal to values decoded from the wire.
// Slices are normalized element-wise into []any.
func Normalize(v any) any {
	switch n := v.(type) {
	case nil, bool, string, int64, float64:
		return v
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = Normalize(e)
		}

		return out
	case []float64:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = e
		}

		return out
	case []int:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = int64(e)
		}

		return out
	}

	return v
}

// AsFloat converts a numeric value to float64.
func AsFloat(v any) (float64, bool) {
	switch n := Normalize(v).(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}

	return 0, false
}

// Add combines two values: numbers add (mixed int/float promotes to float64),
// strings concatenate, slices add element-wise and maps merge key by key.
func Add(a, b any) (any, error) {
	a, b = Normalize(a), Normalize(b)

	switch x := a.(type) {
	case nil:
		return b, nil
	case int64:
		switch y := b.(type) {
		case int64:
			return x + y, nil
		case float64:
			return float64(x) + y, nil
		}
	case float64:
		if y, ok := AsFloat(b); ok {
			return x + y, nil
		}
	case string:
		if y, ok := b.(string); ok {
			return x + y, nil
		}
	case []any:
		if y, ok := b.([]any); ok {
			return addSlices(x, y)
		}
	default:
		if isMap(a) && isMap(b) {
			return addMaps(a, b)
		}
	}

	return nil, fmt.Errorf("%w: %T + %T", ErrUnsupportedOperands, a, b)
}

func addSlices(x, y []any) (any, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: length %d + length %d", ErrUnsupportedOperands, len(x), len(y))
	}

	out := make([]any, len(x))

	for i := range x {
		sum, err := Add(x[i], y[i])
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		out[i] = sum
	}

	return out, nil
}

func addMaps(a, b any) (any, error) {
	out := make(map[any]any)

	if err := EachPair(a, func(k, v any) error {
		k, err := NormalizeKey(k)
		if err != nil {
			return err
		}

		out[k] = Normalize(v)

		return nil
	}); err != nil {
		return nil, err
	}

	err := EachPair(b, func(k, v any) error {
		k, err := NormalizeKey(k)
		if err != nil {
			return err
		}

		current, ok := out[k]
		if !ok {
			out[k] = Normalize(v)

			return nil
		}

		sum, err := Add(current, v)
		if err != nil {
			return fmt.Errorf("key %v: %w", k, err)
		}

		out[k] = sum

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// NormalizeKey makes a value usable as a stable map key. Whole floats fold to
// int64 so 8 and 8.0 name the same key; lists and mappings are rejected.
func NormalizeKey(k any) (any, error) {
	k = Normalize(k)

	switch n := k.(type) {
	case nil, bool, string, int64:
		return k, nil
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt64 && n < math.MaxInt64 {
			return int64(n), nil
		}

		return n, nil
	}

	if t := reflect.TypeOf(k); !t.Comparable() || t.Kind() == reflect.Array {
		return nil, fmt.Errorf("%w: %T cannot be a key", ErrUnsupportedOperands, k)
	}

	return k, nil
}

// EachPair visits every key/value pair of any Go map value.
func EachPair(m any, visit func(k, v any) error) error {
	switch typed := m.(type) {
	case map[any]any:
		for k, v := range typed {
			if err := visit(k, v); err != nil {
				return err
			}
		}

		return nil
	case map[string]any:
		for k, v := range typed {
			if err := visit(k, v); err != nil {
				return err
			}
		}

		return nil
	}

	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("%w: %T is not a mapping", ErrUnsupportedOperands, m)
	}

	iter := rv.MapRange()
	for iter.Next() {
		if err := visit(iter.Key().Interface(), iter.Value().Interface()); err != nil {
			return err
		}
	}

	return nil
}

func isMap(v any) bool {
	if v == nil {
		return false
	}

	return reflect.ValueOf(v).Kind() == reflect.Map
}

// IsList reports whether v is a slice value other than a byte string.
func IsList(v any) bool {
	if v == nil {
		return false
	}

	if _, ok := v.([]byte); ok {
		return false
	}

	return reflect.ValueOf(v).Kind() == reflect.Slice
}

// AsList converts any slice value into []any.
func AsList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}

	out := make([]any, rv.Len())
	for i := range rv.Len() {
		out[i] = rv.Index(i).Interface()
	}

	return out
}

// Compare orders two numbers or two strings. ok is false when they are not comparable.
func Compare(a, b any) (int, bool) {
	if x, ok := AsFloat(a); ok {
		if y, ok := AsFloat(b); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	x, okA := a.(string)
	y, okB := b.(string)

	if okA && okB {
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}
