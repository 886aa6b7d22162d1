package tree

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyDocument is returned when a persisted tree has no root object.
var ErrEmptyDocument = errors.New("tree: empty document")

// Marshal serializes a completed tree as an indented JSON document mirroring
// the Node shape exactly.
func Marshal(root *Node) ([]byte, error) {
	if root == nil {
		return nil, ErrEmptyDocument
	}
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	return data, nil
}

// Unmarshal parses a persisted tree document. A malformed document or a
// document without a root is a hard error: partial trees must never be
// processed as complete.
func Unmarshal(data []byte) (*Node, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse tree document: %w", err)
	}
	if root.ID == "" {
		return nil, fmt.Errorf("parse tree document: root has no id")
	}
	return &root, nil
}
