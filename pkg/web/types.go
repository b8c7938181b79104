// Package web provides HTTP request and response types for the pipeline API.
package web

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/tierflow/pkg/codec"
	"github.com/dukex/tierflow/pkg/models"
)

// UpsertNodeRequest is the body of PUT /nodes/:name. The node name comes from the path.
type UpsertNodeRequest struct {
	Type           string          `json:"type"                      validate:"required"`
	Inputs         models.PortList `json:"inputs,omitempty"`
	Outputs        models.PortList `json:"outputs"                   validate:"required,min=1"`
	ConditionNeeds models.PortList `json:"condition_needs,omitempty"`
	Parent         string          `json:"parent,omitempty"`
	Config         map[string]any  `json:"config,omitempty"`
}

// Spec builds the node declaration for name.
func (r UpsertNodeRequest) Spec(name string) models.NodeSpec {
	return models.NodeSpec{
		Name:           name,
		Type:           r.Type,
		Inputs:         r.Inputs,
		Outputs:        r.Outputs,
		ConditionNeeds: r.ConditionNeeds,
		Parent:         r.Parent,
		Config:         r.Config,
	}
}

// CompileRequest is the body of POST /compile.
type CompileRequest struct {
	Workers         int `json:"workers"          validate:"required,min=1"`
	LocalCollectors int `json:"local_collectors" validate:"required,min=1"`
}

// EvaluateRequest is the body of POST /evaluate/:tier.
type EvaluateRequest struct {
	Values map[string]any `json:"values" validate:"required"`
}

// UnmarshalJSON decodes values with the same number types publish produces.
func (r *EvaluateRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Values json.RawMessage `json:"values"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Values = nil

	if len(raw.Values) == 0 || string(raw.Values) == "null" {
		return nil
	}

	values, err := codec.DecodeJSONObject(raw.Values)
	if err != nil {
		return err
	}

	r.Values = values

	return nil
}

// EvaluateResponse carries the outputs one tier produced.
type EvaluateResponse struct {
	Tier    models.Tier    `json:"tier"`
	Outputs map[string]any `json:"outputs"`
}

// RemoveNodeResponse lists every node removed with the requested one.
type RemoveNodeResponse struct {
	Removed []string `json:"removed"`
}

// NodeTypeResponse describes a registered node type.
type NodeTypeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// jsonValue converts operator values to shapes encoding/json accepts.
// Mappings with non-string keys become objects with formatted keys.
func jsonValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[fmt.Sprint(k)] = jsonValue(elem)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			out[k] = jsonValue(elem)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			out[i] = jsonValue(elem)
		}

		return out
	}

	return v
}
