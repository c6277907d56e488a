/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package datastore defines the storage collaborator contract used by mappers.

The main interface is DataStore, which provides record-level CRUD operations
addressed by collection and primary key:

	type DataStore interface {
	    Get(ctx context.Context, collection string, key storagemodels.Key) (storagemodels.Record, error)
	    Insert(ctx context.Context, collection string, record storagemodels.Record, primaryKey []string) error
	    LastID(ctx context.Context, collection, column string) (any, error)
	    Update(ctx context.Context, collection string, key storagemodels.Key, changes storagemodels.Record) error
	    Delete(ctx context.Context, collection string, key storagemodels.Key) error
	}

Stores that can stream a whole collection also implement Scanner.

Services are registered by name in a Container:

	services := datastore.NewContainer()
	_ = services.Register("main.db", sqliteStore)
	ds, err := services.DataStore("main.db")

Implementations:
  - ddb: DynamoDB tables keyed by the primary-key attributes
  - sqlite: SQLite tables through database/sql and mattn/go-sqlite3
  - mock: In-memory mock implementation for testing
*/
package datastore
