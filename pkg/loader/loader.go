// Package loader reads graph declarations from JSON and HCL files.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/tierflow/pkg/models"
)

// ErrUnsupportedFormat is returned for files that are neither JSON nor HCL.
var ErrUnsupportedFormat = fmt.Errorf("%w: unsupported graph file format", models.ErrInvalidConfig)

var validate = validator.New()

// documentSchema describes a JSON graph file. Ports may be arrays, objects or
// single strings; the node configuration is checked later by its factory.
var documentSchema = gojsonschema.NewGoLoader(map[string]any{
	"type": "array",
	"items": map[string]any{
		"type":     "object",
		"required": []string{"name", "type"},
		"properties": map[string]any{
			"name":            map[string]any{"type": "string", "minLength": 1},
			"type":            map[string]any{"type": "string", "minLength": 1},
			"inputs":          portsSchema,
			"outputs":         portsSchema,
			"condition_needs": portsSchema,
			"parent":          map[string]any{"type": "string"},
			"config":          map[string]any{"type": "object"},
		},
		"additionalProperties": false,
	},
})

var portsSchema = map[string]any{
	"oneOf": []any{
		map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		map[string]any{"type": "string"},
	},
}

// Load reads the node declarations of a graph file. The format is chosen by
// extension: .json or .hcl.
func Load(path string) ([]models.NodeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".hcl":
		return ParseHCL(path, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// ParseJSON decodes a JSON array of node declarations.
func ParseJSON(data []byte) ([]models.NodeSpec, error) {
	result, err := gojsonschema.Validate(documentSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, models.NewConfigError("loader.ParseJSON", "", err)
	}

	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, models.NewConfigError("loader.ParseJSON", "", fmt.Errorf("%w: %s", models.ErrSchemaValidation, strings.Join(problems, "; ")))
	}

	var specs []models.NodeSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, models.NewConfigError("loader.ParseJSON", "", err)
	}

	return specs, check(specs)
}

func check(specs []models.NodeSpec) error {
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if err := validate.Struct(spec); err != nil {
			return models.NewConfigError("loader", spec.Name, fmt.Errorf("%w: %w", models.ErrMissingField, err))
		}

		if seen[spec.Name] {
			return models.NewConfigError("loader", spec.Name, fmt.Errorf("%w: node declared twice", models.ErrInvalidConfig))
		}

		seen[spec.Name] = true
	}

	return nil
}
