package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PortList is an ordered list of port names.
//
// In JSON it may be written either as an array of names or as an object of
// role -> port name. Objects keep their document order, so named declarations
// do not lose position.
type PortList []string

// Ports builds a PortList from names.
func Ports(names ...string) PortList {
	return PortList(names)
}

// Named builds a PortList from alternating role/port pairs, keeping only the ports.
// It mirrors the object form accepted by UnmarshalJSON.
func Named(pairs ...string) PortList {
	ports := make(PortList, 0, len(pairs)/2)
	for i := 1; i < len(pairs); i += 2 {
		ports = append(ports, pairs[i])
	}

	return ports
}

// Contains reports whether the list holds port.
func (p PortList) Contains(port string) bool {
	for _, name := range p {
		if name == port {
			return true
		}
	}

	return false
}

// UnmarshalJSON accepts `["a","b"]`, `{"x":"a","y":"b"}` or a single string.
func (p *PortList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = nil

		return nil
	}

	switch data[0] {
	case '[':
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("port list: %w", err)
		}

		*p = names

		return nil
	case '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("port list: %w", err)
		}

		*p = PortList{name}

		return nil
	case '{':
		return p.unmarshalObject(data)
	default:
		return errors.New("port list must be an array, an object or a string")
	}
}

// unmarshalObject walks the object token by token so that values keep their order.
func (p *PortList) unmarshalObject(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("port list: %w", err)
	}

	ports := PortList{}

	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return fmt.Errorf("port list: %w", err)
		}

		var name string
		if err := dec.Decode(&name); err != nil {
			return fmt.Errorf("port list: value for %v must be a string: %w", key, err)
		}

		ports = append(ports, name)
	}

	*p = ports

	return nil
}
