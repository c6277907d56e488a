/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package cache adds a read-through side cache to any datamapper.Mapper.

	store := memory.New()
	users, _ := env.Mapper("app.user")
	cache.Attach(users, store)

Found records are cached for the mapper CacheTTL (300s by default). The
mapper CachePolicy decides whether inserts and updates refresh the cache and
whether misses are cached as tombstones. Keys look like
"prefix:entity:app:user@id:1".

Implementations of Store live in the memory and ddbcache subpackages.
*/
package cache
