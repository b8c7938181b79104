package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeJSONObject decodes a JSON object of values. Numbers come back the way
// Unmarshal yields them: int64 when whole, float64 otherwise.
func DecodeJSONObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("failed to decode values: %w", err)
	}

	if values == nil {
		return nil, errors.New("failed to decode values: not an object")
	}

	for k, v := range values {
		values[k] = fromJSON(v)
	}

	return values, nil
}

func fromJSON(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}

		if f, err := n.Float64(); err == nil {
			return f
		}

		return n.String()
	case []any:
		for i, e := range n {
			n[i] = fromJSON(e)
		}
	case map[string]any:
		for k, e := range n {
			n[k] = fromJSON(e)
		}
	}

	return v
}
