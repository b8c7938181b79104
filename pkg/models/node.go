// Package models defines the declarative node model shared by the compiler and its collaborators.
package models

// Built-in node types.
const (
	NodeTypeMap           = "map"
	NodeTypeFilterOn      = "filter_on"
	NodeTypeFilterOff     = "filter_off"
	NodeTypeKeyedReduce   = "keyed_reduce"
	NodeTypeAccumulator   = "accumulator"
	NodeTypePicker        = "pick_n"
	NodeTypeRollingBuffer = "rolling_buffer"
)

// NodeSpec is the serializable declaration of a graph node.
// Functions are referenced by name and resolved against a function library.
type NodeSpec struct {
	Name           string         `json:"name"                      msgpack:"name"            validate:"required,min=1"`
	Type           string         `json:"type"                      msgpack:"type"            validate:"required"`
	Inputs         PortList       `json:"inputs,omitempty"          msgpack:"inputs"`
	Outputs        PortList       `json:"outputs,omitempty"         msgpack:"outputs"`
	ConditionNeeds PortList       `json:"condition_needs,omitempty" msgpack:"condition_needs"`
	Parent         string         `json:"parent,omitempty"          msgpack:"parent"`
	Config         map[string]any `json:"config,omitempty"          msgpack:"config"`
}

// Ports returns every port the node touches: inputs, condition needs, then outputs.
func (s NodeSpec) Ports() []string {
	ports := make([]string, 0, len(s.Inputs)+len(s.ConditionNeeds)+len(s.Outputs))
	ports = append(ports, s.Inputs...)
	ports = append(ports, s.ConditionNeeds...)

	return append(ports, s.Outputs...)
}

// ConfigString reads an optional string from the config.
func (s NodeSpec) ConfigString(key, fallback string) string {
	if v, ok := s.Config[key].(string); ok && v != "" {
		return v
	}

	return fallback
}

// ConfigInt reads an optional integer from the config. JSON and HCL numbers arrive as float64.
func (s NodeSpec) ConfigInt(key string, fallback int) int {
	switch v := s.Config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}

	return fallback
}

// ConfigBool reads an optional boolean from the config.
func (s NodeSpec) ConfigBool(key string, fallback bool) bool {
	if v, ok := s.Config[key].(bool); ok {
		return v
	}

	return fallback
}
