/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"strings"
	"sync"

	"github.com/suparena/entitymapper/storagemodels"
)

// Entry is a persisted entity that can be tracked by an IdentityMap.
type Entry interface {
	Class() string
	IsFresh() bool
	IDValues() storagemodels.Key
}

// IdentityMap keeps at most one live entity per class and primary key. It
// holds entries until Clear; owners clear it at the end of each logical
// request.
type IdentityMap struct {
	mu      sync.RWMutex
	enabled bool
	members map[string]Entry
}

// NewIdentityMap returns an enabled, empty IdentityMap.
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{
		enabled: true,
		members: make(map[string]Entry),
	}
}

// Key builds the canonical identity key "class@a:1;b:2". The class name is
// lower-cased and id fields are sorted.
func Key(class string, id storagemodels.Key) string {
	class = strings.ToLower(strings.TrimLeft(class, `\/.`))
	return class + "@" + id.String()
}

// Set tracks e. Fresh entities and entities without a complete id are
// refused, as is everything while the map is disabled.
func (m *IdentityMap) Set(e Entry) bool {
	if e == nil || e.IsFresh() {
		return false
	}
	id := e.IDValues()
	if len(id) == 0 {
		return false
	}
	for _, v := range id {
		if v == nil {
			return false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return false
	}
	m.members[Key(e.Class(), id)] = e
	return true
}

// Get returns the entity tracked for class and id.
func (m *IdentityMap) Get(class string, id storagemodels.Key) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.enabled {
		return nil, false
	}
	e, ok := m.members[Key(class, id)]
	return e, ok
}

// Remove stops tracking class and id. It returns false while disabled.
func (m *IdentityMap) Remove(class string, id storagemodels.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return false
	}
	delete(m.members, Key(class, id))
	return true
}

// Clear drops every tracked entity.
func (m *IdentityMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = make(map[string]Entry)
}

// Enable turns tracking on.
func (m *IdentityMap) Enable() {
	m.mu.Lock()
	m.enabled = true
	m.mu.Unlock()
}

// Disable turns tracking off. Tracked entries are kept but unreachable until
// the map is enabled again.
func (m *IdentityMap) Disable() {
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()
}

// Enabled reports whether tracking is on.
func (m *IdentityMap) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Len returns the number of tracked entities.
func (m *IdentityMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members)
}
