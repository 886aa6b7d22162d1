package analyze

import (
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/shareaudit/sharescan/internal/tree"
)

// Predicate decides whether a node is forwarded to the sink.
type Predicate func(*tree.PathedNode) bool

// AnyoneShared is the default predicate: the node's access-control list
// contains at least one grant to the "anyone" principal. Nodes without
// access metadata never match; absence of data is not an error.
func AnyoneShared(n *tree.PathedNode) bool {
	return n.SharedWithAnyone()
}

// JSONPath builds a predicate from a JSONPath expression evaluated against
// the node's item document; the node matches when the expression yields at
// least one value. Example: $.accessControlEntries[?(@.type == 'domain')].
func JSONPath(expr string) (Predicate, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", expr, err)
	}
	return func(n *tree.PathedNode) bool {
		return len(x.Get(n.Document())) > 0
	}, nil
}
