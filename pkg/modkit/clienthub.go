package modkit

import (
	"fmt"
	"sync"
)

// GlobalScope is the scope used by Publish/Resolve when no module
// scope is given.
const GlobalScope = "global"

// InterfaceID is a stable, per-interface identifier chosen at the
// interface's definition site. Two modules compiling against the same
// interface definition must use the same identifier; a Go string
// constant (conventionally "pkgpath.InterfaceName") serves this role
// the way the Rust original uses type_name::<T>().
type InterfaceID string

type clientKey struct {
	scope string
	id    InterfaceID
}

// onceState pairs a sync.Once with the error its guarded function
// produced. err is written only inside the Do closure and read only
// after Do has returned, so sync.Once's happens-before guarantee
// (every Do call, including no-op ones, happens after the one call
// that actually ran the function) makes the field safe to share
// across callers without its own lock.
type onceState struct {
	once *sync.Once
	err  error
}

// ClientHub is the typed, publish-once/resolve-by-type broker for
// inter-module APIs described in spec.md §4.3. All entries live in one
// map guarded by a single RWMutex: concurrent reads share the read
// lock, and any write (Publish, the store in GetOrInit, Remove, Clear)
// briefly takes the write lock, during which reads of every key wait.
// Re-publishing an existing key fails instead of replacing it.
type ClientHub struct {
	mu   sync.RWMutex
	data map[clientKey]any
	init map[clientKey]*onceState
}

// NewClientHub returns an empty hub.
func NewClientHub() *ClientHub {
	return &ClientHub{
		data: make(map[clientKey]any),
		init: make(map[clientKey]*onceState),
	}
}

// Publish registers value under (scope, id). Fails with
// ErrAlreadyPublished if the key is already populated.
func (h *ClientHub) Publish(scope string, id InterfaceID, value any) error {
	key := clientKey{scope: scope, id: id}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.data[key]; ok {
		return fmt.Errorf("%w: scope=%s id=%s", ErrAlreadyPublished, scope, id)
	}
	h.data[key] = value
	return nil
}

// PublishGlobal registers value under (GlobalScope, id).
func (h *ClientHub) PublishGlobal(id InterfaceID, value any) error {
	return h.Publish(GlobalScope, id, value)
}

// Resolve returns the value published under (scope, id), or
// ErrNotPublished. Scope resolution is exact: a scoped lookup never
// falls back to GLOBAL, per spec.md §9's resolved open question.
func (h *ClientHub) Resolve(scope string, id InterfaceID) (any, error) {
	key := clientKey{scope: scope, id: id}
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: scope=%s id=%s", ErrNotPublished, scope, id)
	}
	return v, nil
}

// ResolveGlobal returns the value published under (GlobalScope, id).
func (h *ClientHub) ResolveGlobal(id InterfaceID) (any, error) {
	return h.Resolve(GlobalScope, id)
}

// GetOrInit returns the existing value for (scope, id), or, if absent,
// runs initFn exactly once across all concurrent callers and
// publishes its result. All callers receive the same value. If initFn
// fails, every caller — the one that ran it and every later caller for
// the same key — receives that same error; a failed init is never
// mistaken for success on a later call.
func (h *ClientHub) GetOrInit(scope string, id InterfaceID, initFn func() (any, error)) (any, error) {
	key := clientKey{scope: scope, id: id}

	h.mu.RLock()
	v, ok := h.data[key]
	h.mu.RUnlock()
	if ok {
		return v, nil
	}

	h.mu.Lock()
	state, ok := h.init[key]
	if !ok {
		state = &onceState{once: &sync.Once{}}
		h.init[key] = state
	}
	h.mu.Unlock()

	state.once.Do(func() {
		val, err := initFn()
		if err != nil {
			state.err = err
			return
		}
		h.mu.Lock()
		h.data[key] = val
		h.mu.Unlock()
	})
	if state.err != nil {
		return nil, state.err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok = h.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: scope=%s id=%s", ErrNotPublished, scope, id)
	}
	return v, nil
}

// Remove deletes the entry for (scope, id), returning it if present.
func (h *ClientHub) Remove(scope string, id InterfaceID) (any, bool) {
	key := clientKey{scope: scope, id: id}
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.data[key]
	delete(h.data, key)
	delete(h.init, key)
	return v, ok
}

// Len reports the number of published entries, for tests.
func (h *ClientHub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.data)
}

// Clear removes everything. Useful in tests.
func (h *ClientHub) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = make(map[clientKey]any)
	h.init = make(map[clientKey]*onceState)
}
