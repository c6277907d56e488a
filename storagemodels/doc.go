/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package storagemodels defines the data structures exchanged between mappers
and storage collaborators.

Key Types:

Record:
A storage-form row or item, field name to value:

	rec := storagemodels.Record{"id": int64(1), "name": "foo"}

Key:
The primary-key fields of a record. Keys render canonically with sorted
field names, which is what identity-map and cache keys are built from:

	storagemodels.Key{"b": 2, "a": 1}.String()  // "a:1;b:2"
	storagemodels.Key{"b": 2, "a": 1}.Join(":") // "a:1:b:2"

StreamResult:
Results from scanning a collection, with metadata:

	type StreamResult struct {
	    Record Record     // The storage-form record
	    Error  error      // Record-specific error, if any
	    Meta   StreamMeta // Metadata about this record
	}

StreamOptions:
Configuration for streaming behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}

These types provide a consistent interface across different storage implementations.
*/
package storagemodels
