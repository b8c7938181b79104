// Package registry resolves node declarations into nodes through registered factories.
package registry

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"sort"
	"strings"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
	"github.com/dukex/tierflow/pkg/protocol"
)

type Registry struct {
	logger        *slog.Logger
	lib           *funcs.Library
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(log *slog.Logger, lib *funcs.Library) *Registry {
	if lib == nil {
		lib = funcs.Default()
	}

	return &Registry{
		logger:        log,
		lib:           lib,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

// Library returns the function library nodes are resolved against.
func (r *Registry) Library() *funcs.Library {
	return r.lib
}

func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	factories, err := loadPlugin[protocol.NodeFactory](r.logger, pluginsPath, "Node")
	if err != nil {
		return nil, err
	}

	for _, f := range factories {
		r.RegisterNode(f)
	}

	return factories, nil
}

func (r *Registry) RegisterNode(nodeFactory protocol.NodeFactory) {
	r.nodeFactories[nodeFactory.ID()] = nodeFactory
}

// GetAvailableNodes returns the registered factories ordered by ID.
func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	out := make([]protocol.NodeFactory, 0, len(r.nodeFactories))
	for _, f := range r.nodeFactories {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })

	return out
}

// Create validates the declaration against its factory schema and builds the node.
func (r *Registry) Create(spec models.NodeSpec) (nodes.Node, error) {
	factory, exists := r.nodeFactories[spec.Type]
	if !exists {
		return nil, models.NewConfigError("registry.Create", spec.Name, fmt.Errorf("%w: %q", models.ErrUnknownNodeType, spec.Type))
	}

	if err := validateConfig(factory.Schema(), spec.Config); err != nil {
		return nil, models.NewConfigError("registry.Create", spec.Name, err)
	}

	node, err := factory.Create(spec, r.lib)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("created node", "name", spec.Name, "type", spec.Type)

	return node, nil
}

// CreateAll builds every declaration, stopping at the first error.
func (r *Registry) CreateAll(specs []models.NodeSpec) ([]nodes.Node, error) {
	out := make([]nodes.Node, 0, len(specs))

	for _, spec := range specs {
		n, err := r.Create(spec)
		if err != nil {
			return nil, err
		}

		out = append(out, n)
	}

	return out, nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/" + strings.ToLower(symbolName) + "s"
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", pluginsPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))
	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p, err)
		}

		castV, ok := v.(T)
		if !ok {
			return nil, fmt.Errorf("plugin %s: symbol %s is %T", p, symbolName, v)
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded node plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
