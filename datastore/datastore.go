/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/entitymapper/storagemodels"
)

// DataStore is a storage collaborator. Collections are tables (or their
// equivalent) and records are addressed by their primary-key fields.
type DataStore interface {
	// Get returns the record stored under key, or nil, nil when there is none.
	Get(ctx context.Context, collection string, key storagemodels.Key) (storagemodels.Record, error)

	// Insert writes a new record. primaryKey names the key fields; fields
	// missing from record are expected to be generated by the backend.
	Insert(ctx context.Context, collection string, record storagemodels.Record, primaryKey []string) error

	// LastID returns the value generated for column by the latest Insert into
	// collection.
	LastID(ctx context.Context, collection, column string) (any, error)

	// Update applies changes to the record stored under key.
	Update(ctx context.Context, collection string, key storagemodels.Key, changes storagemodels.Record) error

	Delete(ctx context.Context, collection string, key storagemodels.Key) error
}

// Scanner is implemented by stores that can stream a whole collection.
type Scanner interface {
	Scan(ctx context.Context, collection string, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult
}
