/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package ddb provides a DynamoDB implementation of datastore.DataStore.

Collections map to tables (optionally prefixed) and records are stored as
plain items marshalled with attributevalue. Key fields are the table's
primary key attributes.

	client, err := ddb.NewClient(ctx, ddb.Config{Region: "us-west-2"})
	store := ddb.New(client, ddb.WithTablePrefix("prod_"))

Inserts are conditional on the key being absent and report
errors.ErrAlreadyExists; updates and deletes are conditional on the key
being present and report errors.ErrNotFound. DynamoDB cannot generate key
values, so LastID always fails.

Scan streams a whole table page by page, retrying throttled requests:

	for res := range store.Scan(ctx, "users", storagemodels.WithPageSize(25)) {
	    if res.Error != nil {
	        return res.Error
	    }
	    ...
	}

For usage against a live table, see the integration tests.
*/
package ddb
