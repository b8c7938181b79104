// Package protocol defines the interfaces and contracts for pluggable nodes.
package protocol

import (
	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node from its declaration, resolving named functions in lib
	Create(spec models.NodeSpec, lib *funcs.Library) (nodes.Node, error)

	// ID returns the unique identifier for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for the node's config
	Schema() map[string]any
}
