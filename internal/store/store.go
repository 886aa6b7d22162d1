// Package store persists crawled trees. Two backends share one interface: a
// JSON document mirroring the node shape, and a flat SQLite snapshot for
// trees too large to re-parse in one gulp. The backend is picked from the
// file extension.
package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/shareaudit/sharescan/internal/tree"
)

// ErrNoRoot is returned when a persisted snapshot contains no root node.
var ErrNoRoot = errors.New("store: snapshot has no root")

// Store writes a completed tree once and reads it back once.
type Store interface {
	Save(root *tree.Node) error
	Load() (*tree.Node, error)
}

// Open selects a backend by extension: .db and .sqlite open the SQLite
// snapshot store, anything else the JSON document store on fs.
func Open(fs billy.Filesystem, path string) Store {
	switch filepath.Ext(path) {
	case ".db", ".sqlite":
		return NewSQLiteStore(path)
	default:
		return NewJSONStore(fs, path)
	}
}

// JSONStore persists the tree as a single JSON document on a billy
// filesystem (osfs in the CLI, memfs in tests).
type JSONStore struct {
	fs   billy.Filesystem
	path string
}

func NewJSONStore(fs billy.Filesystem, path string) *JSONStore {
	return &JSONStore{fs: fs, path: path}
}

// Save implements Store.
func (s *JSONStore) Save(root *tree.Node) error {
	data, err := tree.Marshal(root)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := util.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Load implements Store.
func (s *JSONStore) Load() (*tree.Node, error) {
	data, err := util.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	root, err := tree.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return root, nil
}
