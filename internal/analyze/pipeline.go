// Package analyze re-walks a completed tree: a breadth-first pass assigns
// each node its root-relative path, a bounded pool evaluates the share
// predicate per node, and a single-concurrency sink serializes the tallies
// and the output stream.
package analyze

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/shareaudit/sharescan/internal/tree"
)

// DefaultConcurrency is the default bound on concurrent node evaluations.
const DefaultConcurrency = 1000

// DefaultSeparator joins path segments in the sink output.
const DefaultSeparator = "/"

// Stats is the sink's final tally. The root is visited but never evaluated,
// so it appears in neither count.
type Stats struct {
	Folders int
	Files   int
	Shared  int
}

// Pipeline walks a loaded tree and streams matching nodes to out.
type Pipeline struct {
	limit int
	sep   string
	out   io.Writer
	match Predicate
	log   *zap.Logger
}

// New builds a pipeline writing matching folder paths to out. A nil match
// uses the AnyoneShared predicate.
func New(out io.Writer, limit int, sep string, match Predicate, log *zap.Logger) *Pipeline {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if sep == "" {
		sep = DefaultSeparator
	}
	if match == nil {
		match = AnyoneShared
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{limit: limit, sep: sep, out: out, match: match, log: log}
}

// verdict pairs a node with its filter outcome on the way to the sink.
type verdict struct {
	node    *tree.PathedNode
	matched bool
}

// Run traverses the tree rooted at root. Every child's path is assigned by
// its parent's traversal step, strictly before the child reaches the filter;
// delivery to the sink is in completion order, not tree order. Run returns
// once the sink has drained.
func (p *Pipeline) Run(ctx context.Context, root *tree.PathedNode) (Stats, error) {
	if root == nil {
		return Stats{}, fmt.Errorf("analyze: nil root")
	}
	start := time.Now()

	results := make(chan verdict, p.limit)
	var stats Stats
	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		for v := range results {
			if v.node.IsFolder() {
				stats.Folders++
			} else {
				stats.Files++
			}
			if !v.matched {
				continue // discard sink
			}
			stats.Shared++
			if v.node.IsFolder() {
				fmt.Fprintln(p.out, v.node.FullPath(p.sep))
			}
		}
	}()

	workers := pool.New().WithContext(ctx).WithMaxGoroutines(p.limit)

	// Breadth-first over an explicit queue; recursion depth must not track
	// tree depth. The walk itself is the only writer of Path.
	queue := []*tree.PathedNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, c := range n.Children {
			c.Path = append(append(make([]string, 0, len(n.Path)+1), n.Path...), n.Name)
			queue = append(queue, c)
			child := c
			workers.Go(func(ctx context.Context) error {
				trySend(ctx, verdict{node: child, matched: p.match(child)}, results)
				return ctx.Err()
			})
		}
	}

	err := workers.Wait()
	close(results)
	<-sinkDone

	if err != nil {
		return Stats{}, fmt.Errorf("analyze: %w", err)
	}
	p.log.Info("analyze complete",
		zap.Int("folders", stats.Folders),
		zap.Int("files", stats.Files),
		zap.Int("shared", stats.Shared),
		zap.Duration("elapsed", time.Since(start)))
	return stats, nil
}

// trySend sends msg unless the context is canceled first.
func trySend[T any](ctx context.Context, msg T, ch chan<- T) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case ch <- msg:
		return true
	}
}
