package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/and161185/sm-portal/internal/errs"
)

type fakeSink struct {
	active     atomic.Bool
	clearCalls atomic.Int32
}

func (s *fakeSink) Clear()         { s.clearCalls.Add(1); s.active.Store(false) }
func (s *fakeSink) IsActive() bool { return s.active.Load() }

// blockingNotifier records notices and holds each dialog open until released.
type blockingNotifier struct {
	calls   atomic.Int32
	opened  chan struct{}
	release chan struct{}
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{opened: make(chan struct{}, 16), release: make(chan struct{})}
}

func (n *blockingNotifier) Notify(ctx context.Context, _ Notice) error {
	n.calls.Add(1)
	n.opened <- struct{}{}
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type instantNotifier struct{ calls atomic.Int32 }

func (n *instantNotifier) Notify(context.Context, Notice) error {
	n.calls.Add(1)
	return nil
}

func unauthorizedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"login required"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExpiry_ConcurrentUnauthorizedShowsOneNotice(t *testing.T) {
	t.Parallel()

	srv := unauthorizedServer(t)
	notifier := newBlockingNotifier()
	g, err := New(Options{BaseURL: srv.URL + "/api", Logger: zaptest.NewLogger(t), Notifier: notifier})
	require.NoError(t, err)
	sink := &fakeSink{}
	sink.active.Store(true)
	g.BindSession(sink)

	const n = 20
	var returned atomic.Int32
	var eg errgroup.Group
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			err := g.Do(context.Background(), Request{Method: http.MethodGet, Path: "/admin/list"}, nil)
			returned.Add(1)
			if !errors.Is(err, errs.ErrUnauthenticated) {
				return errors.New("401 was swallowed or remapped")
			}
			return nil
		})
	}

	select {
	case <-notifier.opened:
	case <-time.After(5 * time.Second):
		t.Fatal("no notice opened")
	}
	// every request except the one holding the dialog finishes while it is open
	require.Eventually(t, func() bool { return returned.Load() == n-1 }, 5*time.Second, 5*time.Millisecond)
	close(notifier.release)
	require.NoError(t, eg.Wait())

	require.EqualValues(t, 1, notifier.calls.Load())
	require.EqualValues(t, 1, sink.clearCalls.Load())
	require.False(t, sink.IsActive())
}

func TestExpiry_FlagResetsAfterNotice(t *testing.T) {
	t.Parallel()

	srv := unauthorizedServer(t)
	notifier := &instantNotifier{}
	g, err := New(Options{BaseURL: srv.URL + "/api", Notifier: notifier})
	require.NoError(t, err)
	sink := &fakeSink{}
	g.BindSession(sink)
	ctx := context.Background()
	req := Request{Method: http.MethodGet, Path: "/admin/list"}

	// logged out: no notice, flag released immediately
	require.ErrorIs(t, g.Do(ctx, req, nil), errs.ErrUnauthenticated)
	require.EqualValues(t, 0, notifier.calls.Load())
	require.EqualValues(t, 0, sink.clearCalls.Load())

	// logged in again: a fresh expiry produces a fresh notice
	sink.active.Store(true)
	require.ErrorIs(t, g.Do(ctx, req, nil), errs.ErrUnauthenticated)
	require.EqualValues(t, 1, notifier.calls.Load())

	sink.active.Store(true)
	require.ErrorIs(t, g.Do(ctx, req, nil), errs.ErrUnauthenticated)
	require.EqualValues(t, 2, notifier.calls.Load())
	require.EqualValues(t, 2, sink.clearCalls.Load())
}

func TestExpiry_IgnoresOtherStatuses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	notifier := &instantNotifier{}
	g, err := New(Options{BaseURL: srv.URL + "/api", Notifier: notifier})
	require.NoError(t, err)
	sink := &fakeSink{}
	sink.active.Store(true)
	g.BindSession(sink)

	err = g.Do(context.Background(), Request{Method: http.MethodDelete, Path: "/qna/1"}, nil)
	require.ErrorIs(t, err, errs.ErrForbidden)
	require.True(t, sink.IsActive())
	require.EqualValues(t, 0, notifier.calls.Load())
}

func TestExpiry_UnboundSinkStillPropagates(t *testing.T) {
	t.Parallel()

	srv := unauthorizedServer(t)
	g, err := New(Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	err = g.Do(context.Background(), Request{Method: http.MethodGet, Path: "/admin/list"}, nil)
	require.ErrorIs(t, err, errs.ErrUnauthenticated)
}
