/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.DataStore for testing
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// Operation names counted by Calls.
const (
	OpGet    = "get"
	OpInsert = "insert"
	OpLastID = "last_id"
	OpUpdate = "update"
	OpDelete = "delete"
	OpScan   = "scan"
)

// DataStore is an in-memory datastore.DataStore. A single missing primary
// key field is filled from a per-collection sequence on Insert.
type DataStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]storagemodels.Record
	sequences   map[string]int64
	lastIDs     map[string]map[string]any
	calls       map[string]int
	getError    error
	insertError error
	lastIDError error
	updateError error
	deleteError error
}

// New creates a new mock DataStore
func New() *DataStore {
	return &DataStore{
		collections: make(map[string]map[string]storagemodels.Record),
		sequences:   make(map[string]int64),
		lastIDs:     make(map[string]map[string]any),
		calls:       make(map[string]int),
	}
}

// WithGetError makes Get operations return an error
func (m *DataStore) WithGetError(err error) *DataStore {
	m.getError = err
	return m
}

// WithInsertError makes Insert operations return an error
func (m *DataStore) WithInsertError(err error) *DataStore {
	m.insertError = err
	return m
}

// WithLastIDError makes LastID operations return an error
func (m *DataStore) WithLastIDError(err error) *DataStore {
	m.lastIDError = err
	return m
}

// WithUpdateError makes Update operations return an error
func (m *DataStore) WithUpdateError(err error) *DataStore {
	m.updateError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *DataStore) WithDeleteError(err error) *DataStore {
	m.deleteError = err
	return m
}

// Get retrieves a record by key
func (m *DataStore) Get(ctx context.Context, collection string, key storagemodels.Key) (storagemodels.Record, error) {
	m.count(OpGet)
	if m.getError != nil {
		return nil, m.getError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if rec, exists := m.collections[collection][key.String()]; exists {
		return rec.Copy(), nil
	}
	return nil, nil
}

// Insert stores a new record
func (m *DataStore) Insert(ctx context.Context, collection string, record storagemodels.Record, primaryKey []string) error {
	m.count(OpInsert)
	if m.insertError != nil {
		return m.insertError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec := record.Copy()
	var generated string
	for _, name := range primaryKey {
		if v, ok := rec[name]; ok && v != nil {
			continue
		}
		if generated != "" {
			return errors.NewValidationError(name, "only one generated key field is supported")
		}
		m.sequences[collection]++
		rec[name] = m.sequences[collection]
		generated = name
	}

	key, ok := rec.Pick(primaryKey)
	if !ok || len(primaryKey) == 0 {
		return errors.NewValidationError("key", "unable to extract key from record")
	}

	coll := m.collection(collection)
	if _, exists := coll[key.String()]; exists {
		return errors.NewAlreadyExistsError(collection, key.String())
	}
	coll[key.String()] = rec

	if generated != "" {
		if m.lastIDs[collection] == nil {
			m.lastIDs[collection] = make(map[string]any)
		}
		m.lastIDs[collection][generated] = rec[generated]
	}
	return nil
}

// LastID returns the value generated for column by the latest Insert
func (m *DataStore) LastID(ctx context.Context, collection, column string) (any, error) {
	m.count(OpLastID)
	if m.lastIDError != nil {
		return nil, m.lastIDError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.lastIDs[collection][column]
	if !ok {
		return nil, errors.NewNotFoundError(collection, column)
	}
	return id, nil
}

// Update merges changes into the stored record
func (m *DataStore) Update(ctx context.Context, collection string, key storagemodels.Key, changes storagemodels.Record) error {
	m.count(OpUpdate)
	if m.updateError != nil {
		return m.updateError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.collections[collection][key.String()]
	if !exists {
		return errors.NewNotFoundError(collection, key.String())
	}
	for k, v := range changes {
		rec[k] = v
	}
	return nil
}

// Delete removes a record by key
func (m *DataStore) Delete(ctx context.Context, collection string, key storagemodels.Key) error {
	m.count(OpDelete)
	if m.deleteError != nil {
		return m.deleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collections[collection]
	if _, exists := coll[key.String()]; !exists {
		return errors.NewNotFoundError(collection, key.String())
	}
	delete(coll, key.String())
	return nil
}

// Scan streams every record of a collection in key order
func (m *DataStore) Scan(ctx context.Context, collection string, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult {
	m.count(OpScan)
	options := storagemodels.ApplyStreamOptions(opts...)
	records := m.Records(collection)

	resultChan := make(chan storagemodels.StreamResult, options.BufferSize)

	go func() {
		defer close(resultChan)

		for i, rec := range records {
			select {
			case <-ctx.Done():
				return
			case resultChan <- storagemodels.StreamResult{
				Record: rec,
				Meta: storagemodels.StreamMeta{
					Index:      int64(i),
					PageNumber: 1,
					Timestamp:  time.Now(),
				},
			}:
			}
		}
	}()

	return resultChan
}

// Helper methods for testing

// Seed stores records directly, bypassing fault injection and call counting
func (m *DataStore) Seed(collection string, primaryKey []string, records ...storagemodels.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll := m.collection(collection)
	for _, rec := range records {
		key, ok := rec.Pick(primaryKey)
		if !ok {
			panic(fmt.Sprintf("mock: seeded record %v lacks key fields %v", rec, primaryKey))
		}
		coll[key.String()] = rec.Copy()
	}
}

// Records returns copies of the records of a collection, ordered by key
func (m *DataStore) Records(collection string) []storagemodels.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	coll := m.collections[collection]
	keys := make([]string, 0, len(coll))
	for k := range coll {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]storagemodels.Record, len(keys))
	for i, k := range keys {
		out[i] = coll[k].Copy()
	}
	return out
}

// Count returns the number of records in a collection
func (m *DataStore) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

// Calls returns how many times an operation was invoked
func (m *DataStore) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// Clear removes all data and counters
func (m *DataStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]map[string]storagemodels.Record)
	m.sequences = make(map[string]int64)
	m.lastIDs = make(map[string]map[string]any)
	m.calls = make(map[string]int)
}

func (m *DataStore) count(op string) {
	m.mu.Lock()
	m.calls[op]++
	m.mu.Unlock()
}

func (m *DataStore) collection(name string) map[string]storagemodels.Record {
	coll, ok := m.collections[name]
	if !ok {
		coll = make(map[string]storagemodels.Record)
		m.collections[name] = coll
	}
	return coll
}
