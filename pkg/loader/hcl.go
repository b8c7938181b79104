package loader

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/dukex/tierflow/pkg/models"
)

type hclFile struct {
	Nodes []*hclNode `hcl:"node,block"`
}

type hclNode struct {
	Name           string    `hcl:"name,label"`
	Type           string    `hcl:"type"`
	Inputs         []string  `hcl:"inputs,optional"`
	Outputs        []string  `hcl:"outputs,optional"`
	ConditionNeeds []string  `hcl:"condition_needs,optional"`
	Parent         string    `hcl:"parent,optional"`
	Config         cty.Value `hcl:"config,optional"`
}

// ParseHCL decodes `node "name" { ... }` blocks. The filename is only used
// in diagnostics.
func ParseHCL(filename string, src []byte) ([]models.NodeSpec, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, models.NewConfigError("loader.ParseHCL", "", fmt.Errorf("failed to parse %s: %w", filename, diags))
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return nil, models.NewConfigError("loader.ParseHCL", "", fmt.Errorf("failed to decode %s: %w", filename, diags))
	}

	specs := make([]models.NodeSpec, 0, len(parsed.Nodes))

	for _, n := range parsed.Nodes {
		config, err := configFromCty(n.Config)
		if err != nil {
			return nil, models.NewConfigError("loader.ParseHCL", n.Name, err)
		}

		specs = append(specs, models.NodeSpec{
			Name:           n.Name,
			Type:           n.Type,
			Inputs:         n.Inputs,
			Outputs:        n.Outputs,
			ConditionNeeds: n.ConditionNeeds,
			Parent:         n.Parent,
			Config:         config,
		})
	}

	return specs, check(specs)
}

func configFromCty(v cty.Value) (map[string]any, error) {
	if v.IsNull() {
		return nil, nil
	}

	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}

	config, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config must be an object, got %s", v.Type().FriendlyName())
	}

	return config, nil
}

// ctyToNative converts a cty value into plain Go values. Whole numbers become
// int64, other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()

	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}

		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("number: %w", err)
		}

		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0, v.LengthInt())

		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()

			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}

			out = append(out, native)
		}

		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)

		for it := v.ElementIterator(); it.Next(); {
			key, elem := it.Element()

			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", key.AsString(), err)
			}

			out[key.AsString()] = native
		}

		return out, nil
	}

	return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}
