// Package remote is the client side of the paginated listing API the crawler
// consumes. The engine only ever sees the Lister interface; the Drive
// implementation and the retry decorator both satisfy it.
package remote

import (
	"context"

	"github.com/shareaudit/sharescan/internal/tree"
)

// Page is one page of a children listing. An empty NextToken means the
// listing is exhausted.
type Page struct {
	Items     []tree.Item
	NextToken string
}

// Lister fetches single pages of a remote hierarchy. Implementations must be
// safe for concurrent use: the crawl engine issues many ListChildren calls
// in parallel, though never two for the same parent.
type Lister interface {
	// Stat fetches the item descriptor for a single id.
	Stat(ctx context.Context, id string) (tree.Item, error)

	// ListChildren fetches one page of parentID's children. pageToken is
	// empty on the first call and the previous page's NextToken after that.
	ListChildren(ctx context.Context, parentID, pageToken string) (Page, error)
}
