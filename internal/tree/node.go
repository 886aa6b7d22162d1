// Package tree holds the node model shared by the crawl and analyze passes.
//
// The two passes see the same tree shape through two distinct types: Node is
// what the crawler builds and persists, PathedNode is what the analyzer walks
// after reload, carrying the computed root-relative path. Both embed Item,
// the common per-entry sub-shape, and conversion between them happens exactly
// once, at the load boundary.
package tree

import "strings"

// FolderMimeType is the discriminator the remote API uses for folders.
// Everything else is a leaf.
const FolderMimeType = "application/vnd.google-apps.folder"

// PrincipalAnyone is the principal type marking an item as shared with
// anyone holding the link.
const PrincipalAnyone = "anyone"

// AccessEntry is a single permission grant on a remote item.
type AccessEntry struct {
	Type   string `json:"type"`
	Role   string `json:"role,omitempty"`
	Email  string `json:"emailAddress,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// Item is the per-entry shape common to both passes: identity, the MIME
// discriminator, and whatever metadata the listing returned.
type Item struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	MimeType string         `json:"mimeType"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Access   []AccessEntry  `json:"accessControlEntries,omitempty"`
}

// IsFolder reports whether the item can have children.
func (it Item) IsFolder() bool {
	return it.MimeType == FolderMimeType
}

// SharedWithAnyone reports whether any access entry grants to the "anyone"
// principal. An item without access metadata is simply not shared.
func (it Item) SharedWithAnyone() bool {
	for _, e := range it.Access {
		if e.Type == PrincipalAnyone {
			return true
		}
	}
	return false
}

// Document returns a generic map view of the item, suitable for JSONPath
// evaluation. Access entries are expanded so path expressions can reach
// individual grants.
func (it Item) Document() map[string]any {
	doc := map[string]any{
		"id":       it.ID,
		"name":     it.Name,
		"mimeType": it.MimeType,
	}
	if it.Metadata != nil {
		doc["metadata"] = it.Metadata
	}
	if len(it.Access) > 0 {
		entries := make([]any, 0, len(it.Access))
		for _, e := range it.Access {
			m := map[string]any{"type": e.Type}
			if e.Role != "" {
				m["role"] = e.Role
			}
			if e.Email != "" {
				m["emailAddress"] = e.Email
			}
			if e.Domain != "" {
				m["domain"] = e.Domain
			}
			entries = append(entries, m)
		}
		doc["accessControlEntries"] = entries
	}
	return doc
}

// Node is one item of the crawled tree. Children is populated exactly once,
// by the crawl engine, in the order the remote API returned them; after the
// engine signals completion the tree is immutable.
type Node struct {
	Item
	Children []*Node `json:"children"`
}

// Count returns the total number of nodes in the tree, including n itself.
func (n *Node) Count() int {
	total := 0
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		total++
		queue = append(queue, cur.Children...)
	}
	return total
}

// PathedNode is the analyze-pass view of a node: the same item plus the
// ordered ancestor names from the root down to, but excluding, the node
// itself. Path is computed by the pipeline, never persisted.
type PathedNode struct {
	Item
	Path     []string      `json:"-"`
	Children []*PathedNode `json:"children"`
}

// FullPath joins the node's ancestor names and its own name with sep.
func (n *PathedNode) FullPath(sep string) string {
	if len(n.Path) == 0 {
		return n.Name
	}
	return strings.Join(n.Path, sep) + sep + n.Name
}

// FromNode converts a crawled tree into the analyze-pass shape. The walk is
// iterative so arbitrarily deep trees cannot exhaust the stack.
func FromNode(root *Node) *PathedNode {
	if root == nil {
		return nil
	}
	out := &PathedNode{Item: root.Item}
	type frame struct {
		src *Node
		dst *PathedNode
	}
	queue := []frame{{root, out}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if len(f.src.Children) == 0 {
			continue
		}
		f.dst.Children = make([]*PathedNode, len(f.src.Children))
		for i, c := range f.src.Children {
			pc := &PathedNode{Item: c.Item}
			f.dst.Children[i] = pc
			queue = append(queue, frame{c, pc})
		}
	}
	return out
}
