package funcs

import (
	"errors"
	"fmt"
	"sort"
)

// Default returns a library with the built-in functions registered.
func Default() *Library {
	l := NewLibrary()

	l.RegisterMap("identity", identity)
	l.RegisterMap("sum", sum)
	l.RegisterMap("mean", mean)
	l.RegisterMap("zip", zip)
	l.RegisterMap("len", length)
	l.RegisterMap("pair", pair)
	l.RegisterMap("bin_means", binMeans)

	l.RegisterReduce("add", Add)
	l.RegisterReduce("max", maxOf)
	l.RegisterReduce("min", minOf)
	l.RegisterReduce("concat", concat)

	l.RegisterZero("int", func() any { return int64(0) })
	l.RegisterZero("float", func() any { return float64(0) })
	l.RegisterZero("list", func() any { return []any{} })
	l.RegisterZero("map", func() any { return map[any]any{} })

	return l
}

func identity(args ...any) ([]any, error) {
	return args, nil
}

func sum(args ...any) ([]any, error) {
	var total any

	for i, a := range args {
		next, err := Add(total, a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}

		total = next
	}

	return []any{total}, nil
}

func mean(args ...any) ([]any, error) {
	values := args
	if len(args) == 1 && IsList(args[0]) {
		values = AsList(args[0])
	}

	if len(values) == 0 {
		return nil, errors.New("mean of no values")
	}

	var total float64

	for i, v := range values {
		f, ok := AsFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: value %d is %T", ErrUnsupportedOperands, i, v)
		}

		total += f
	}

	return []any{total / float64(len(values))}, nil
}

func zip(args ...any) ([]any, error) {
	entry := make([]any, len(args))
	copy(entry, args)

	return []any{entry}, nil
}

// pair turns a value into a [value, 1] sum/count pair for binned means.
func pair(args ...any) ([]any, error) {
	if len(args) != 1 {
		return nil, errors.New("pair expects a single value")
	}

	return []any{[]any{Normalize(args[0]), int64(1)}}, nil
}

func length(args ...any) ([]any, error) {
	if len(args) != 1 || !IsList(args[0]) {
		return nil, errors.New("len expects a single list")
	}

	return []any{int64(len(AsList(args[0])))}, nil
}

// binMeans turns a key -> [sum, count] mapping into sorted bins and per-bin means.
// Plain numeric values are passed through as their own mean.
func binMeans(args ...any) ([]any, error) {
	if len(args) != 1 {
		return nil, errors.New("bin_means expects a single mapping")
	}

	type bin struct {
		key  any
		mean float64
	}

	var bins []bin

	err := EachPair(args[0], func(k, v any) error {
		m, err := binMean(v)
		if err != nil {
			return fmt.Errorf("bin %v: %w", k, err)
		}

		key, err := NormalizeKey(k)
		if err != nil {
			return err
		}

		bins = append(bins, bin{key: key, mean: m})

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(bins, func(i, j int) bool {
		c, ok := Compare(bins[i].key, bins[j].key)

		return ok && c < 0
	})

	keys := make([]any, len(bins))
	means := make([]any, len(bins))

	for i, b := range bins {
		keys[i] = b.key
		means[i] = b.mean
	}

	return []any{keys, means}, nil
}

func binMean(v any) (float64, error) {
	if f, ok := AsFloat(v); ok {
		return f, nil
	}

	pair := AsList(v)
	if len(pair) != 2 {
		return 0, fmt.Errorf("%w: expected [sum, count], got %T", ErrUnsupportedOperands, v)
	}

	total, okSum := AsFloat(pair[0])
	count, okCount := AsFloat(pair[1])

	if !okSum || !okCount {
		return 0, fmt.Errorf("%w: non-numeric [sum, count]", ErrUnsupportedOperands)
	}

	if count == 0 {
		return 0, nil
	}

	return total / count, nil
}

func maxOf(acc, value any) (any, error) {
	if acc == nil {
		return Normalize(value), nil
	}

	c, ok := Compare(acc, value)
	if !ok {
		return nil, fmt.Errorf("%w: max(%T, %T)", ErrUnsupportedOperands, acc, value)
	}

	if c < 0 {
		return Normalize(value), nil
	}

	return acc, nil
}

func minOf(acc, value any) (any, error) {
	if acc == nil {
		return Normalize(value), nil
	}

	c, ok := Compare(acc, value)
	if !ok {
		return nil, fmt.Errorf("%w: min(%T, %T)", ErrUnsupportedOperands, acc, value)
	}

	if c > 0 {
		return Normalize(value), nil
	}

	return acc, nil
}

// concat appends value to the list acc; list values are spliced in.
func concat(acc, value any) (any, error) {
	var out []any
	if acc != nil {
		if !IsList(acc) {
			return nil, fmt.Errorf("%w: concat onto %T", ErrUnsupportedOperands, acc)
		}

		out = append(out, AsList(Normalize(acc))...)
	}

	if IsList(value) {
		return append(out, AsList(Normalize(value))...), nil
	}

	return append(out, Normalize(value)), nil
}
