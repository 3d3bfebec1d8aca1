package gateway

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/and161185/sm-portal/internal/errs"
)

// SessionSink is the part of the session store the gateway may touch.
type SessionSink interface {
	// Clear resets local login state without any network call.
	Clear()
	// IsActive reports whether the client currently believes it is logged in.
	IsActive() bool
}

// Notice is a user-facing blocking message.
type Notice struct {
	Title string
	Text  string
}

// SessionExpired is raised once per expiry event.
var SessionExpired = Notice{
	Title: "Session expired",
	Text:  "Your login session has expired. Please log in again.",
}

// Notifier shows a notice and blocks until the user acknowledges it.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// expiryGuard deduplicates the session-expired side effect across
// concurrently failing requests. inFlight acts as a non-reentrant lock for
// the whole client; nothing outside this type reads or writes it.
type expiryGuard struct {
	inFlight atomic.Bool

	mu       sync.RWMutex
	sink     SessionSink
	notifier Notifier
	log      *zap.Logger
}

func (g *expiryGuard) bind(s SessionSink) {
	g.mu.Lock()
	g.sink = s
	g.mu.Unlock()
}

func (g *expiryGuard) intercept(ctx context.Context, req *http.Request, next Invoker) (*http.Response, error) {
	resp, err := next(ctx, req)
	if err != nil && errs.IsStatus(err, http.StatusUnauthorized) {
		g.handle(ctx)
	}
	return resp, err
}

func (g *expiryGuard) handle(ctx context.Context) {
	if !g.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer g.inFlight.Store(false)

	g.mu.RLock()
	sink, notifier := g.sink, g.notifier
	g.mu.RUnlock()

	if sink == nil || !sink.IsActive() {
		return
	}
	sink.Clear()
	g.log.Info("session expired")
	if notifier == nil {
		return
	}
	// the dialog outlives the request that triggered it
	if err := notifier.Notify(context.WithoutCancel(ctx), SessionExpired); err != nil {
		g.log.Warn("expiry notice failed", zap.Error(err))
	}
}
