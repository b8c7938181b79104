// Package codec encodes graph snapshots and tier batches as msgpack.
//
// Decoding is loose: integers come back as int64, floats as float64 and maps
// as map[string]any or map[any]any depending on their keys.
package codec

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	dec.SetMapDecoder(decodeMap)

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}

	return nil
}

// decodeMap keeps string-keyed maps as map[string]any and falls back to
// map[any]any for any other key type.
func decodeMap(dec *msgpack.Decoder) (any, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}

	if n == -1 {
		return nil, nil
	}

	keys := make([]any, n)
	values := make([]any, n)
	stringKeys := true

	for i := range n {
		if keys[i], err = dec.DecodeInterfaceLoose(); err != nil {
			return nil, err
		}

		if values[i], err = dec.DecodeInterfaceLoose(); err != nil {
			return nil, err
		}

		if _, ok := keys[i].(string); !ok {
			stringKeys = false
		}
	}

	if stringKeys {
		out := make(map[string]any, n)
		for i, k := range keys {
			out[k.(string)] = values[i]
		}

		return out, nil
	}

	out := make(map[any]any, n)
	for i, k := range keys {
		out[k] = values[i]
	}

	return out, nil
}
