package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/shareaudit/sharescan/internal/tree"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS nodes (
	id TEXT PRIMARY KEY,
	parent_id TEXT,
	ord INTEGER NOT NULL,
	name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	metadata JSON,
	access JSON
);
CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, ord);
`

const insertBatchSize = 10000

// SQLiteStore persists the tree as a flat nodes table, one row per node,
// with sibling order kept in an explicit column.
type SQLiteStore struct {
	path string
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Save implements Store. The previous snapshot, if any, is overwritten.
// Rows are written through a prepared statement in batched transactions.
func (s *SQLiteStore) Save(root *tree.Node) error {
	if root == nil {
		return ErrNoRoot
	}
	_ = os.Remove(s.path)

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", s.path, err)
	}
	defer func() { _ = db.Close() }()

	// Bulk-insert tuning; durability comes from the final commit.
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	w := &sqliteWriter{db: db}
	if err := w.begin(); err != nil {
		return err
	}

	type frame struct {
		node   *tree.Node
		parent string
		ord    int
	}
	queue := []frame{{root, "", 0}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if err := w.insert(f.node, f.parent, f.ord); err != nil {
			return err
		}
		for i, c := range f.node.Children {
			queue = append(queue, frame{c, f.node.ID, i})
		}
	}
	return w.commit()
}

type sqliteWriter struct {
	db    *sql.DB
	tx    *sql.Tx
	stmt  *sql.Stmt
	count int
}

func (w *sqliteWriter) begin() error {
	var err error
	w.tx, err = w.db.Begin()
	if err != nil {
		return err
	}
	w.stmt, err = w.tx.Prepare(`
		INSERT OR REPLACE INTO nodes (id, parent_id, ord, name, mime_type, metadata, access)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	return err
}

func (w *sqliteWriter) insert(n *tree.Node, parent string, ord int) error {
	var parentID *string
	if parent != "" {
		parentID = &parent
	}

	var metadata, access []byte
	var err error
	if len(n.Metadata) > 0 {
		if metadata, err = json.Marshal(n.Metadata); err != nil {
			return fmt.Errorf("encode metadata for %s: %w", n.ID, err)
		}
	}
	if len(n.Access) > 0 {
		if access, err = json.Marshal(n.Access); err != nil {
			return fmt.Errorf("encode access for %s: %w", n.ID, err)
		}
	}

	if _, err := w.stmt.Exec(n.ID, parentID, ord, n.Name, n.MimeType, metadata, access); err != nil {
		return fmt.Errorf("insert node %s: %w", n.ID, err)
	}

	w.count++
	if w.count >= insertBatchSize {
		if err := w.commit(); err != nil {
			return err
		}
		w.count = 0
		return w.begin()
	}
	return nil
}

func (w *sqliteWriter) commit() error {
	if w.stmt != nil {
		_ = w.stmt.Close()
	}
	return w.tx.Commit()
}

// Load implements Store. Rows are streamed once; the tree is reassembled
// from the parent_id relation with sibling order restored from ord.
func (s *SQLiteStore) Load() (*tree.Node, error) {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", s.path, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(`SELECT id, parent_id, name, mime_type, metadata, access FROM nodes ORDER BY parent_id, ord`)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	nodes := make(map[string]*tree.Node)
	children := make(map[string][]*tree.Node)
	var root *tree.Node

	for rows.Next() {
		var (
			id, name, mimeType string
			parentID           sql.NullString
			metadata, access   []byte
		)
		if err := rows.Scan(&id, &parentID, &name, &mimeType, &metadata, &access); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}
		n := &tree.Node{Item: tree.Item{ID: id, Name: name, MimeType: mimeType}}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
				return nil, fmt.Errorf("parse metadata for %s: %w", id, err)
			}
		}
		if len(access) > 0 {
			if err := json.Unmarshal(access, &n.Access); err != nil {
				return nil, fmt.Errorf("parse access for %s: %w", id, err)
			}
		}
		nodes[id] = n
		if parentID.Valid {
			children[parentID.String] = append(children[parentID.String], n)
		} else {
			if root != nil {
				return nil, fmt.Errorf("snapshot %s has multiple roots", s.path)
			}
			root = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("load %s: %w", s.path, ErrNoRoot)
	}

	for id, n := range nodes {
		n.Children = children[id]
	}
	for parent := range children {
		if _, ok := nodes[parent]; !ok {
			return nil, fmt.Errorf("snapshot %s references unknown parent %s", s.path, parent)
		}
	}
	return root, nil
}
