// Package collection caches server-paginated listings whose responses may
// resolve out of order.
package collection

import (
	"context"
	"sync/atomic"

	"github.com/and161185/sm-portal/internal/errs"
	"github.com/and161185/sm-portal/internal/model"
	"github.com/and161185/sm-portal/internal/reactive"
)

// Latest is an observable result of a request that may be superseded. It
// admits a result only when its request was issued after the one it holds;
// superseded results are dropped, not aborted.
type Latest[T any] struct {
	issued atomic.Uint64
	val    *reactive.Value[stamped[T]]
}

type stamped[T any] struct {
	seq uint64
	v   T
}

// NewLatest returns a Latest holding v, older than any request.
func NewLatest[T any](v T) *Latest[T] {
	return &Latest[T]{val: reactive.NewValue(stamped[T]{v: v})}
}

// Begin returns the tag for a request about to be issued.
func (l *Latest[T]) Begin() uint64 { return l.issued.Add(1) }

// Commit stores v if seq is newer than the held result and reports whether
// it did. Subscribers are called outside any lock and may issue requests.
func (l *Latest[T]) Commit(seq uint64, v T) bool {
	return l.val.UpdateIf(func(cur stamped[T]) (stamped[T], bool) {
		if seq <= cur.seq {
			return cur, false
		}
		return stamped[T]{seq: seq, v: v}, true
	})
}

// Get returns the held result.
func (l *Latest[T]) Get() T { return l.val.Get().v }

// Subscribe observes committed results.
func (l *Latest[T]) Subscribe(fn func(T)) (cancel func()) {
	return l.val.Subscribe(func(s stamped[T]) { fn(s.v) })
}

// ValidatePage rejects pagination arguments before any request is made.
func ValidatePage(page, size int) error {
	if page < 0 {
		return errs.Validation("page must be >= 0, got %d", page)
	}
	if size <= 0 {
		return errs.Validation("page size must be > 0, got %d", size)
	}
	return nil
}

type slot[T any] struct {
	item T
	ok   bool
}

// Cache holds one page of T plus a current-item slot. The two are
// independent: loading an item never touches the page and vice versa.
type Cache[T any] struct {
	page    *Latest[model.Page[T]]
	current *Latest[slot[T]]
}

// NewCache returns an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{
		page:    NewLatest(model.Page[T]{}),
		current: NewLatest(slot[T]{}),
	}
}

// Page returns the last applied page.
func (c *Cache[T]) Page() model.Page[T] { return c.page.Get() }

// Current returns the current item, if one was loaded.
func (c *Cache[T]) Current() (T, bool) {
	s := c.current.Get()
	return s.item, s.ok
}

// SubscribePage observes applied pages.
func (c *Cache[T]) SubscribePage(fn func(model.Page[T])) (cancel func()) {
	return c.page.Subscribe(fn)
}

// SubscribeCurrent observes the current-item slot.
func (c *Cache[T]) SubscribeCurrent(fn func(T)) (cancel func()) {
	return c.current.Subscribe(func(s slot[T]) { fn(s.item) })
}

// Load issues fetch and applies its page unless a later-issued load has
// already been applied. The fetched page is returned to the caller either way.
func (c *Cache[T]) Load(ctx context.Context, fetch func(context.Context) (model.Page[T], error)) (model.Page[T], error) {
	seq := c.page.Begin()
	p, err := fetch(ctx)
	if err != nil {
		return model.Page[T]{}, err
	}
	if p.Items == nil {
		p.Items = []T{}
	}
	c.page.Commit(seq, p)
	return p, nil
}

// LoadCurrent is Load for the current-item slot.
func (c *Cache[T]) LoadCurrent(ctx context.Context, fetch func(context.Context) (T, error)) (T, error) {
	seq := c.current.Begin()
	item, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.current.Commit(seq, slot[T]{item: item, ok: true})
	return item, nil
}
