// Package crawl implements the bounded fan-out engine that discovers a
// remote hierarchy through a paginated listing API.
//
// The engine holds no global coordinator. Each folder node is expanded by
// exactly one goroutine under a weighted-semaphore permit, and overall
// completion is detected by a single atomic outstanding-work counter:
// incremented when a node is submitted, decremented after its folder
// children have been submitted in turn. The counter can only reach zero once
// every branch of the tree has been fully expanded, because a parent's
// decrement is ordered after its children's increments.
package crawl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/shareaudit/sharescan/internal/remote"
	"github.com/shareaudit/sharescan/internal/tree"
)

// DefaultConcurrency is the default expansion-permit ceiling.
const DefaultConcurrency = 1500

// Engine drives the crawl. It is cheap to construct and single-use per
// Crawl call; the per-run state lives in run.
type Engine struct {
	lister remote.Lister
	limit  int64
	log    *zap.Logger
}

// New builds an engine over lister. limit is the permit ceiling: the maximum
// number of branch expansions in flight at once, not a raw request cap.
func New(lister remote.Lister, limit int, log *zap.Logger) *Engine {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{lister: lister, limit: int64(limit), log: log}
}

// run is the state of one crawl: the permit pool, the outstanding-work
// counter, and the first-error slot. The permit pool and the counter are the
// only shared mutable state; every node is owned by the one goroutine
// expanding it.
type run struct {
	engine *Engine
	ctx    context.Context
	cancel context.CancelFunc

	sem         *semaphore.Weighted
	outstanding atomic.Int64
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup

	errOnce sync.Once
	err     error

	nodes atomic.Int64
	pages atomic.Int64
}

// Crawl expands the tree rooted at rootID until every folder's children are
// complete, or until the first permanent failure or context cancellation
// aborts the whole run. A partial tree is never returned as complete.
func (e *Engine) Crawl(ctx context.Context, rootID string) (*tree.Node, error) {
	item, err := e.lister.Stat(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", rootID, err)
	}
	root := &tree.Node{Item: item}
	if !root.IsFolder() {
		// A leaf root is already a complete tree.
		return root, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		engine: e,
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(e.limit),
		done:   make(chan struct{}),
	}

	start := time.Now()
	r.submit(root)
	<-r.done
	r.wg.Wait()

	if r.err != nil {
		return nil, r.err
	}
	e.log.Info("crawl complete",
		zap.String("root", rootID),
		zap.Int64("folders_expanded", r.nodes.Load()),
		zap.Int64("pages_fetched", r.pages.Load()),
		zap.Duration("elapsed", time.Since(start)))
	return root, nil
}

// submit registers n as outstanding work and hands it to a new expansion
// goroutine. The increment happens before the goroutine starts, so the
// counter is never observed at zero while work remains unscheduled.
func (r *run) submit(n *tree.Node) {
	r.outstanding.Add(1)
	r.wg.Add(1)
	go r.expand(n)
}

func (r *run) expand(n *tree.Node) {
	defer r.wg.Done()
	// Dispatch bookkeeping: the decrement runs after the folder children
	// below have been submitted, and the last decrement to reach zero
	// signals quiescence.
	defer func() {
		if r.outstanding.Add(-1) == 0 {
			r.closeOnce.Do(func() { close(r.done) })
		}
	}()

	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		r.fail(err)
		return
	}

	if err := r.fetchChildren(n); err != nil {
		r.sem.Release(1)
		r.fail(fmt.Errorf("expand %s: %w", n.ID, err))
		return
	}

	// The permit is held until the children are scheduled: it stands for
	// "this branch still has unscheduled work", not for one network call.
	for _, c := range n.Children {
		if c.IsFolder() {
			r.submit(c)
		}
	}
	r.sem.Release(1)
	r.nodes.Add(1)
}

// fetchChildren runs n's pagination loop to exhaustion. The continuation
// token is private to this node; sibling ordering is whatever the API
// returned.
func (r *run) fetchChildren(n *tree.Node) error {
	token := ""
	for {
		page, err := r.engine.lister.ListChildren(r.ctx, n.ID, token)
		if err != nil {
			return err
		}
		r.pages.Add(1)
		for _, item := range page.Items {
			n.Children = append(n.Children, &tree.Node{Item: item})
		}
		if page.NextToken == "" {
			return nil
		}
		token = page.NextToken
	}
}

// fail records the first error and cancels every in-flight fetch. Later
// errors (usually context.Canceled fallout from the cancellation itself) are
// dropped.
func (r *run) fail(err error) {
	r.errOnce.Do(func() {
		r.err = err
		r.engine.log.Error("crawl aborted", zap.Error(err))
		r.cancel()
	})
}
