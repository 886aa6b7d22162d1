package tests

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shareaudit/sharescan/internal/analyze"
	"github.com/shareaudit/sharescan/internal/crawl"
	"github.com/shareaudit/sharescan/internal/remote"
	"github.com/shareaudit/sharescan/internal/store"
	"github.com/shareaudit/sharescan/internal/tree"
)

// scriptedDrive is a minimal remote backend: a flat id -> item map plus a
// parent -> children relation, served in pages of two to force pagination.
type scriptedDrive struct {
	items    map[string]tree.Item
	children map[string][]string
}

func (d *scriptedDrive) Stat(ctx context.Context, id string) (tree.Item, error) {
	item, ok := d.items[id]
	if !ok {
		return tree.Item{}, fmt.Errorf("no such item %s", id)
	}
	return item, nil
}

func (d *scriptedDrive) ListChildren(ctx context.Context, parentID, pageToken string) (remote.Page, error) {
	const pageSize = 2
	offset := 0
	if pageToken != "" {
		var err error
		if offset, err = strconv.Atoi(pageToken); err != nil {
			return remote.Page{}, err
		}
	}
	ids := d.children[parentID]
	end := offset + pageSize
	if end > len(ids) {
		end = len(ids)
	}
	page := remote.Page{}
	for _, id := range ids[offset:end] {
		page.Items = append(page.Items, d.items[id])
	}
	if end < len(ids) {
		page.NextToken = strconv.Itoa(end)
	}
	return page, nil
}

// fixture is the reference hierarchy: R -> {A (anyone), B}, A -> {C}, plus a
// second level under B's sibling folder to exercise pagination.
func fixture() *scriptedDrive {
	d := &scriptedDrive{
		items:    make(map[string]tree.Item),
		children: make(map[string][]string),
	}
	folder := func(id, name string, access ...tree.AccessEntry) {
		d.items[id] = tree.Item{ID: id, Name: name, MimeType: tree.FolderMimeType, Access: access}
	}
	file := func(id, name string, access ...tree.AccessEntry) {
		d.items[id] = tree.Item{ID: id, Name: name, MimeType: "text/plain", Access: access}
	}
	anyone := tree.AccessEntry{Type: tree.PrincipalAnyone, Role: "reader"}
	private := tree.AccessEntry{Type: "user", Role: "writer", Email: "owner@example.com"}

	folder("r", "R")
	folder("a", "A", anyone)
	file("b", "B", private)
	file("c", "C", private)
	d.children["r"] = []string{"a", "b"}
	d.children["a"] = []string{"c"}
	return d
}

func runPass(t *testing.T, fs billy.Filesystem, path string) (analyze.Stats, []string) {
	t.Helper()

	root, err := crawl.New(fixture(), 8, nil).Crawl(context.Background(), "r")
	require.NoError(t, err)

	st := store.Open(fs, path)
	require.NoError(t, st.Save(root))

	reloaded, err := st.Load()
	require.NoError(t, err)
	require.Equal(t, root, reloaded, "reload must reproduce an isomorphic tree")

	var buf bytes.Buffer
	stats, err := analyze.New(&buf, 4, "/", nil, nil).Run(context.Background(), tree.FromNode(reloaded))
	require.NoError(t, err)

	var lines []string
	if out := strings.TrimSpace(buf.String()); out != "" {
		lines = strings.Split(out, "\n")
	}
	return stats, lines
}

func TestCrawlThenAnalyze_JSON(t *testing.T) {
	stats, lines := runPass(t, memfs.New(), "tree.json")
	assert.Equal(t, []string{"R/A"}, lines)
	assert.Equal(t, analyze.Stats{Folders: 1, Files: 2, Shared: 1}, stats)
}

func TestCrawlThenAnalyze_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	stats, lines := runPass(t, memfs.New(), path)
	assert.Equal(t, []string{"R/A"}, lines)
	assert.Equal(t, analyze.Stats{Folders: 1, Files: 2, Shared: 1}, stats)
}
