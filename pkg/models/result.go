package models

// Result is the outcome of one operator call. A pending result carries no
// value; a ready result may legitimately hold a falsy value such as 0 or nil.
type Result struct {
	value any
	ready bool
}

// Ready wraps a computed value.
func Ready(value any) Result {
	return Result{value: value, ready: true}
}

// Pending signals that no value is available yet.
func Pending() Result {
	return Result{}
}

// IsReady reports whether the result carries a value.
func (r Result) IsReady() bool {
	return r.ready
}

// Value returns the wrapped value and whether it is ready.
func (r Result) Value() (any, bool) {
	return r.value, r.ready
}
