/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import (
	"context"
	"sync"
)

// Event names a lifecycle point of a mapper operation.
type Event string

const (
	EventSave    Event = "save"
	EventInsert  Event = "insert"
	EventUpdate  Event = "update"
	EventDelete  Event = "delete"
	EventRefresh Event = "refresh"
)

// HookFunc runs around a mapper operation. A non-nil error aborts it.
type HookFunc func(ctx context.Context, d *Data) error

// Hooks holds ordered before/after callbacks per event. The zero value is
// ready to use.
type Hooks struct {
	mu     sync.RWMutex
	before map[Event][]HookFunc
	after  map[Event][]HookFunc
}

// NewHooks returns an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{}
}

// Before appends fn to the callbacks run before e.
func (h *Hooks) Before(e Event, fn HookFunc) *Hooks {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.before == nil {
		h.before = make(map[Event][]HookFunc)
	}
	h.before[e] = append(h.before[e], fn)
	return h
}

// After appends fn to the callbacks run after e.
func (h *Hooks) After(e Event, fn HookFunc) *Hooks {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.after == nil {
		h.after = make(map[Event][]HookFunc)
	}
	h.after[e] = append(h.after[e], fn)
	return h
}

// Len returns the number of callbacks registered for e.
func (h *Hooks) Len(e Event) int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.before[e]) + len(h.after[e])
}

func (h *Hooks) runBefore(ctx context.Context, e Event, d *Data) error {
	return h.run(ctx, e, d, true)
}

func (h *Hooks) runAfter(ctx context.Context, e Event, d *Data) error {
	return h.run(ctx, e, d, false)
}

func (h *Hooks) run(ctx context.Context, e Event, d *Data, before bool) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	var fns []HookFunc
	if before {
		fns = append(fns, h.before[e]...)
	} else {
		fns = append(fns, h.after[e]...)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		if err := fn(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// extend appends every callback of other.
func (h *Hooks) extend(other *Hooks) {
	if other == nil {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	for e, fns := range other.before {
		for _, fn := range fns {
			h.Before(e, fn)
		}
	}
	for e, fns := range other.after {
		for _, fn := range fns {
			h.After(e, fn)
		}
	}
}
