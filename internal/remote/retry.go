package remote

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"github.com/shareaudit/sharescan/internal/tree"
)

// RetryLister decorates a Lister with exponential backoff on transient
// failures. Retries are scoped to the single failing call, so a rate-limited
// branch never aborts its siblings. Permanent failures (bad credential,
// missing node, malformed token) surface immediately.
type RetryLister struct {
	next        Lister
	maxElapsed  time.Duration
	maxInterval time.Duration
	log         *zap.Logger
}

// NewRetryLister wraps next. maxElapsed bounds the total time spent retrying
// one call; zero means the backoff library default.
func NewRetryLister(next Lister, maxElapsed time.Duration, log *zap.Logger) *RetryLister {
	if log == nil {
		log = zap.NewNop()
	}
	return &RetryLister{
		next:        next,
		maxElapsed:  maxElapsed,
		maxInterval: 30 * time.Second,
		log:         log,
	}
}

// Stat implements Lister.
func (r *RetryLister) Stat(ctx context.Context, id string) (tree.Item, error) {
	var item tree.Item
	err := r.retry(ctx, "stat", id, func() error {
		var err error
		item, err = r.next.Stat(ctx, id)
		return err
	})
	return item, err
}

// ListChildren implements Lister.
func (r *RetryLister) ListChildren(ctx context.Context, parentID, pageToken string) (Page, error) {
	var page Page
	err := r.retry(ctx, "list", parentID, func() error {
		var err error
		page, err = r.next.ListChildren(ctx, parentID, pageToken)
		return err
	})
	return page, err
}

func (r *RetryLister) retry(ctx context.Context, op, id string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = r.maxInterval
	if r.maxElapsed > 0 {
		policy.MaxElapsedTime = r.maxElapsed
	}

	attempt := 0
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return backoff.Permanent(err)
		}
		attempt++
		r.log.Warn("transient remote failure, retrying",
			zap.String("op", op),
			zap.String("id", id),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return err
	}, backoff.WithContext(policy, ctx))
}

// Transient reports whether err is worth retrying: rate limiting, server
// errors, or temporary network failures. Everything else is permanent.
func Transient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 429:
			return true
		case gerr.Code >= 500:
			return true
		case gerr.Code == 403:
			for _, e := range gerr.Errors {
				if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
					return true
				}
			}
		}
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	return false
}
