package models

import (
	"errors"
	"fmt"
)

// Configuration errors. They are detected before any node executes and are fatal.
var (
	ErrInvalidConfig = errors.New("invalid configuration")

	ErrMissingField     = errors.New("missing required field")
	ErrNotCallable      = errors.New("function is not callable")
	ErrCycle            = errors.New("cyclic dependency")
	ErrZeroExpansion    = errors.New("expansion ratio must be at least one")
	ErrUnknownNodeType  = errors.New("unknown node type")
	ErrInvalidPorts     = errors.New("invalid port declaration")
	ErrDuplicateOutput  = errors.New("output port declared twice by the same node")
	ErrSchemaValidation = errors.New("config does not match node schema")
)

// Runtime errors.
var (
	ErrNotCompiled  = errors.New("graph is not compiled")
	ErrUnknownTier  = errors.New("unknown tier")
	ErrNodeNotFound = errors.New("node not found")
)

// ConfigError wraps a configuration failure with the offending node.
type ConfigError struct {
	Op   string // Operation being performed (e.g. "NewAccumulator", "Compile")
	Node string // Offending node name, if any
	Err  error  // Underlying error
}

func (e *ConfigError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: node %q: %v", e.Op, e.Node, e.Err)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is makes every ConfigError match ErrInvalidConfig in addition to its cause.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig || errors.Is(e.Err, target)
}

// NewConfigError creates a configuration error for a node.
func NewConfigError(op, node string, err error) *ConfigError {
	return &ConfigError{
		Op:   op,
		Node: node,
		Err:  err,
	}
}

// NodeError wraps an error raised by a node while it was executing.
type NodeError struct {
	Node string
	Tier Tier
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q on %s tier: %v", e.Node, e.Tier, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsNodeError checks if an error was raised by a node during evaluation.
func IsNodeError(err error) bool {
	var nodeErr *NodeError

	return errors.As(err, &nodeErr)
}

// IsNodeNotFound checks if an error indicates a node was not found.
func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}
