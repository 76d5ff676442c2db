package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/file-portal-backend/internal/download/biz"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/logger"
	"github.com/lk2023060901/file-portal-backend/internal/pkg/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []biz.CodeNotification
	errs  []error
	err   error
}

func (r *recordingNotifier) NotifyCodeIssued(ctx context.Context, n biz.CodeNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	r.errs = append(r.errs, ctx.Err())
	return r.err
}

func newAsync(t *testing.T, next biz.Notifier) (*AsyncNotifier, *workerpool.Pool) {
	t.Helper()
	pool, err := workerpool.New(&workerpool.Config{Workers: 2, QueueSize: 10}, nil)
	require.NoError(t, err)
	return NewAsyncNotifier(next, pool, time.Second, logger.NewNop()), pool
}

func TestAsyncNotifier_SendsAfterCallerContextEnds(t *testing.T) {
	rec := &recordingNotifier{}
	n, pool := newAsync(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, n.NotifyCodeIssued(ctx, note))
	cancel()

	require.NoError(t, pool.Shutdown(context.Background()))
	require.Len(t, rec.notes, 1)
	assert.Equal(t, note, rec.notes[0])
	assert.NoError(t, rec.errs[0])
}

func TestAsyncNotifier_SwallowsSendErrors(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("smtp: 550 mailbox unavailable")}
	n, pool := newAsync(t, rec)

	assert.NoError(t, n.NotifyCodeIssued(context.Background(), note))
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Len(t, rec.notes, 1)
}

func TestAsyncNotifier_ClosedPool(t *testing.T) {
	n, pool := newAsync(t, &recordingNotifier{})
	require.NoError(t, pool.Shutdown(context.Background()))

	assert.ErrorIs(t, n.NotifyCodeIssued(context.Background(), note), workerpool.ErrPoolClosed)
}

func TestNewMailDispatcher(t *testing.T) {
	_, _, err := NewMailDispatcher(Config{}, logger.NewNop())
	assert.Error(t, err)

	n, shutdown, err := NewMailDispatcher(Config{Host: "smtp.example.com", From: "portal@example.com"}, logger.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, n)
	assert.Greater(t, n.timeout, 15*time.Second)
	require.NoError(t, shutdown(context.Background()))
}

type stalledNotifier struct {
	release chan struct{}
}

func (s stalledNotifier) NotifyCodeIssued(context.Context, biz.CodeNotification) error {
	<-s.release
	return nil
}

func TestAsyncNotifier_BusySMTPDoesNotStallIssuer(t *testing.T) {
	stalled := stalledNotifier{release: make(chan struct{})}
	n, pool := newAsync(t, stalled)

	begin := time.Now()
	for range 5 {
		require.NoError(t, n.NotifyCodeIssued(context.Background(), note))
	}
	assert.Less(t, time.Since(begin), 100*time.Millisecond)

	close(stalled.release)
	require.NoError(t, pool.Shutdown(context.Background()))
}
