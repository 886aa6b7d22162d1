package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/shareaudit/sharescan/internal/tree"
)

// scriptedLister fails a fixed number of times before succeeding.
type scriptedLister struct {
	failures int
	err      error
	calls    int
}

func (s *scriptedLister) Stat(ctx context.Context, id string) (tree.Item, error) {
	s.calls++
	if s.calls <= s.failures {
		return tree.Item{}, s.err
	}
	return tree.Item{ID: id, Name: "ok"}, nil
}

func (s *scriptedLister) ListChildren(ctx context.Context, parentID, pageToken string) (Page, error) {
	s.calls++
	if s.calls <= s.failures {
		return Page{}, s.err
	}
	return Page{Items: []tree.Item{{ID: "child"}}}, nil
}

func rateLimited() error {
	return &googleapi.Error{
		Code:   403,
		Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
	}
}

func TestRetry_TransientEventuallySucceeds(t *testing.T) {
	s := &scriptedLister{failures: 2, err: rateLimited()}
	r := NewRetryLister(s, 5*time.Second, nil)

	page, err := r.ListChildren(context.Background(), "p", "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, s.calls)
}

func TestRetry_PermanentFailsImmediately(t *testing.T) {
	notFound := &googleapi.Error{Code: 404}
	s := &scriptedLister{failures: 10, err: notFound}
	r := NewRetryLister(s, 5*time.Second, nil)

	_, err := r.Stat(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, 1, s.calls)
}

func TestRetry_ContextCancelStopsRetrying(t *testing.T) {
	s := &scriptedLister{failures: 1000, err: rateLimited()}
	r := NewRetryLister(s, time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.ListChildren(ctx, "p", "")
	require.Error(t, err)
	assert.Less(t, s.calls, 1000)
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(&googleapi.Error{Code: 429}))
	assert.True(t, Transient(&googleapi.Error{Code: 500}))
	assert.True(t, Transient(&googleapi.Error{Code: 503}))
	assert.True(t, Transient(rateLimited()))
	assert.True(t, Transient(&net.DNSError{IsTimeout: true}))

	assert.False(t, Transient(&googleapi.Error{Code: 403})) // plain forbidden
	assert.False(t, Transient(&googleapi.Error{Code: 404}))
	assert.False(t, Transient(&googleapi.Error{Code: 401}))
	assert.False(t, Transient(errors.New("malformed continuation token")))
	assert.False(t, Transient(nil))
}
