// Package file stores snapshots as files under a root directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dukex/tierflow/pkg/persistence"
)

const extension = ".tierflow"

// Store implements persistence.SnapshotStore on the file system.
type Store struct {
	root string
}

// NewStore creates a store rooted at root. A "file://" prefix is accepted.
func NewStore(root string) *Store {
	return &Store{root: strings.Replace(root, "file://", "", 1)}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, key+extension)
}

// Save writes the blob atomically.
func (s *Store) Save(_ context.Context, key string, blob []byte) error {
	if err := persistence.ValidateKey("Save", key); err != nil {
		return err
	}

	if err := os.MkdirAll(s.root, 0o750); err != nil {
		return persistence.NewSnapshotError("Save", key, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp, err := os.CreateTemp(s.root, key+".*.tmp")
	if err != nil {
		return persistence.NewSnapshotError("Save", key, err)
	}

	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()

		return persistence.NewSnapshotError("Save", key, err)
	}

	if err := tmp.Close(); err != nil {
		return persistence.NewSnapshotError("Save", key, err)
	}

	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return persistence.NewSnapshotError("Save", key, err)
	}

	return nil
}

// Load reads the blob stored under key.
func (s *Store) Load(_ context.Context, key string) ([]byte, error) {
	if err := persistence.ValidateKey("Load", key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewSnapshotError("Load", key, persistence.ErrSnapshotNotFound)
	}

	if err != nil {
		return nil, persistence.NewSnapshotError("Load", key, err)
	}

	return data, nil
}

// Delete removes the blob stored under key.
func (s *Store) Delete(_ context.Context, key string) error {
	if err := persistence.ValidateKey("Delete", key); err != nil {
		return err
	}

	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewSnapshotError("Delete", key, persistence.ErrSnapshotNotFound)
	}

	if err != nil {
		return persistence.NewSnapshotError("Delete", key, err)
	}

	return nil
}

// Keys lists the stored keys in lexical order.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	files, err := fs.Glob(os.DirFS(s.root), "*"+extension)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, strings.TrimSuffix(f, extension))
	}

	sort.Strings(keys)

	return keys, nil
}

// HealthCheck verifies the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (s *Store) Close(_ context.Context) error {
	return nil
}
