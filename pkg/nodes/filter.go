package nodes

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/dukex/tierflow/pkg/models"
)

// Filter gates the branch downstream of its output on a single condition port.
// It has no data inputs; its output carries true only while the gate is open.
type Filter struct {
	Base

	open bool
}

// NewFilterOn creates a filter that opens when the condition is truthy.
func NewFilterOn(spec models.NodeSpec) (*Filter, error) {
	return newFilter("NewFilterOn", spec, true)
}

// NewFilterOff creates a filter that opens when the condition is falsy.
func NewFilterOff(spec models.NodeSpec) (*Filter, error) {
	return newFilter("NewFilterOff", spec, false)
}

func newFilter(op string, spec models.NodeSpec, open bool) (*Filter, error) {
	if len(spec.Inputs) != 0 {
		return nil, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: filters take no data inputs", models.ErrInvalidPorts))
	}

	if len(spec.ConditionNeeds) != 1 {
		return nil, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: exactly one condition port", models.ErrInvalidPorts))
	}

	if len(spec.Outputs) != 1 {
		return nil, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: exactly one output port", models.ErrInvalidPorts))
	}

	base, err := NewBase(op, spec)
	if err != nil {
		return nil, err
	}

	return &Filter{Base: base, open: open}, nil
}

func (f *Filter) Type() string {
	if f.open {
		return models.NodeTypeFilterOn
	}

	return models.NodeTypeFilterOff
}

// Condition returns the gating port.
func (f *Filter) Condition() string { return f.conditionNeeds[0] }

// Output returns the gate port.
func (f *Filter) Output() string { return f.outputs[0] }

// Gate reports whether the branch runs for the given condition value.
func (f *Filter) Gate(value any) bool {
	return Truthy(value) == f.open
}

// Call is Pending when the gate is closed so no value flows downstream.
func (f *Filter) Call(args ...any) (models.Result, error) {
	if len(args) != 1 {
		return models.Pending(), fmt.Errorf("filter expects the condition value, got %d arguments", len(args))
	}

	if !f.Gate(args[0]) {
		return models.Pending(), nil
	}

	return models.Ready(true), nil
}

func (f *Filter) Spec() models.NodeSpec {
	return f.BaseSpec(f.Type(), nil)
}

// Truthy converts a condition value to a boolean.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}

		return v != ""
	}

	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return false
	}
}
