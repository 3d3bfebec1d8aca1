// Package reactive provides publish-on-change values that views can observe.
package reactive

import "sync"

// Value holds a snapshot of T and notifies subscribers after every Set.
// Subscribers run synchronously on the setter's goroutine, outside the lock.
type Value[T any] struct {
	mu     sync.RWMutex
	cur    T
	nextID int
	subs   map[int]func(T)
}

// NewValue returns a Value initialised to v.
func NewValue[T any](v T) *Value[T] {
	return &Value[T]{cur: v, subs: map[int]func(T){}}
}

// Get returns the current snapshot.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Set replaces the snapshot and publishes it.
func (v *Value[T]) Set(next T) {
	v.Update(func(T) T { return next })
}

// Update applies fn to the current snapshot under the lock and publishes the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.UpdateIf(func(cur T) (T, bool) { return fn(cur), true })
}

// UpdateIf applies fn under the lock. The result is stored and published only
// when fn reports true. Subscribers run after the lock is released, so they
// may call back into whatever owns v.
func (v *Value[T]) UpdateIf(fn func(T) (T, bool)) bool {
	v.mu.Lock()
	next, ok := fn(v.cur)
	if !ok {
		v.mu.Unlock()
		return false
	}
	v.cur = next
	subs := make([]func(T), 0, len(v.subs))
	for _, s := range v.subs {
		subs = append(subs, s)
	}
	v.mu.Unlock()

	for _, s := range subs {
		s(next)
	}
	return true
}

// Subscribe registers fn for future changes and returns a cancel func.
func (v *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = fn
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			v.mu.Unlock()
		})
	}
}
