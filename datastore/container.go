/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"fmt"
	"io"
	"sort"
	"sync"

	errs "github.com/suparena/entitymapper/errors"
)

// Container is a thread-safe set of named storage services. Mappers resolve
// their "service" option through it.
type Container struct {
	mu     sync.RWMutex
	stores map[string]DataStore
}

// NewContainer creates an empty Container.
func NewContainer() *Container {
	return &Container{
		stores: make(map[string]DataStore),
	}
}

// Register stores ds under name. Registering a name twice is an error.
func (c *Container) Register(name string, ds DataStore) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.stores[name]; exists {
		return fmt.Errorf("%w: datastore %q already registered", errs.ErrConfig, name)
	}
	c.stores[name] = ds
	return nil
}

// DataStore retrieves the store registered under name.
func (c *Container) DataStore(name string) (DataStore, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ds, exists := c.stores[name]
	if !exists {
		return nil, fmt.Errorf("%w: datastore %q not found", errs.ErrConfig, name)
	}
	return ds, nil
}

// Names lists the registered service names.
func (c *Container) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.stores))
	for name := range c.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every registered store that implements io.Closer and returns
// the first error.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for name, ds := range c.stores {
		closer, ok := ds.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing datastore %q: %w", name, err)
		}
	}
	return first
}
