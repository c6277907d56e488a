/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package sqlite provides a SQLite implementation of datastore.DataStore.

Collections are tables and records are rows. Identifiers are always double
quoted and values are passed as ? parameters.

	store, err := sqlite.Open(sqlite.Config{Path: "data/app.db", WALMode: true, BusyTimeout: 5})
	if err != nil {
	    return err
	}
	defer store.Close()

The connection pool is limited to a single connection: SQLite supports one
writer, and ":memory:" databases are private to their connection.

LastID reports the rowid generated by the latest Insert into a table that
left a key field unset. Update and Delete report errors.ErrNotFound when no
row matched the key.
*/
package sqlite
