/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package registry holds the identity map: at most one live entity per class
and primary key within a logical request.

Keys are the lower-cased class followed by the sorted key fields:

	registry.Key("App.User", storagemodels.Key{"id": 1}) // "app.user@id:1"

The map can be disabled globally, in which case Set is a no-op and Get
always misses. Clear drops every entry and is called at the end of each
request.
*/
package registry
