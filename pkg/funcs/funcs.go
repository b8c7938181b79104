// Package funcs provides the named function library that map nodes and
// stateful operators call into. Functions are referenced by name in node
// declarations so that a compiled graph stays serializable.
package funcs

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dukex/tierflow/pkg/models"
)

// MapFn computes one value per output port from the positional inputs.
type MapFn func(args ...any) ([]any, error)

// ReduceFn folds value into acc.
type ReduceFn func(acc, value any) (any, error)

// ZeroFn produces the identity value for an accumulation.
type ZeroFn func() any

// Map is a named map function.
type Map struct {
	Name string
	Fn   MapFn
}

// Reduce is a named reduction.
type Reduce struct {
	Name string
	Fn   ReduceFn
}

// Zero is a named zero-value factory.
type Zero struct {
	Name string
	Fn   ZeroFn
}

// Callable reports whether the function can be invoked.
func (m Map) Callable() bool { return m.Fn != nil }

// Callable reports whether the function can be invoked.
func (r Reduce) Callable() bool { return r.Fn != nil }

// Callable reports whether the function can be invoked.
func (z Zero) Callable() bool { return z.Fn != nil }

// Library is a concurrency-safe set of named functions.
type Library struct {
	mu      sync.RWMutex
	maps    map[string]MapFn
	reduces map[string]ReduceFn
	zeros   map[string]ZeroFn
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		maps:    make(map[string]MapFn),
		reduces: make(map[string]ReduceFn),
		zeros:   make(map[string]ZeroFn),
	}
}

// RegisterMap adds or replaces a map function.
func (l *Library) RegisterMap(name string, fn MapFn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maps[name] = fn
}

// RegisterReduce adds or replaces a reduction.
func (l *Library) RegisterReduce(name string, fn ReduceFn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reduces[name] = fn
}

// RegisterZero adds or replaces a zero-value factory.
func (l *Library) RegisterZero(name string, fn ZeroFn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.zeros[name] = fn
}

// Map looks up a map function by name.
func (l *Library) Map(name string) (Map, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fn, ok := l.maps[name]
	if !ok || fn == nil {
		return Map{}, fmt.Errorf("%w: map function %q", models.ErrNotCallable, name)
	}

	return Map{Name: name, Fn: fn}, nil
}

// Reduce looks up a reduction by name.
func (l *Library) Reduce(name string) (Reduce, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fn, ok := l.reduces[name]
	if !ok || fn == nil {
		return Reduce{}, fmt.Errorf("%w: reduction %q", models.ErrNotCallable, name)
	}

	return Reduce{Name: name, Fn: fn}, nil
}

// Zero looks up a zero-value factory by name.
func (l *Library) Zero(name string) (Zero, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fn, ok := l.zeros[name]
	if !ok || fn == nil {
		return Zero{}, fmt.Errorf("%w: zero factory %q", models.ErrNotCallable, name)
	}

	return Zero{Name: name, Fn: fn}, nil
}

// Names lists the registered function names per kind, sorted.
func (l *Library) Names() map[string][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return map[string][]string{
		"map":    sortedKeys(l.maps),
		"reduce": sortedKeys(l.reduces),
		"zero":   sortedKeys(l.zeros),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
