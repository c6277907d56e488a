/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package entitymapper wires the entity persistence core to concrete storage.

An App is built from a config.Config: every configured service becomes a
named datastore (memory, SQLite or DynamoDB), every cache a named side
cache, and the schema files are registered with a shared
datamapper.Environment. Mappers whose class names a cache_service get the
cache decorator attached when they are first built.

Basic Usage:

	cfg, err := config.Load("entitymapper.yaml")
	if err != nil {
	    return err
	}
	app, err := entitymapper.Open(ctx, cfg)
	if err != nil {
	    return err
	}
	defer app.Close()

	users, err := app.Mapper("app.user")
	if err != nil {
	    return err
	}
	user, _ := users.New(map[string]any{"email": "ann@example.com"})
	err = user.Save(ctx)

	// At the end of every request:
	app.ResetRequest()

Packages:
  - datamapper: schemas, entities, mappers and the environment
  - valuetype: the type registry and built-in codecs
  - registry: the identity map
  - cache: the read-through cache decorator and its stores
  - datastore: the storage contract and its adapters
  - processor: YAML entity descriptors
*/
package entitymapper
