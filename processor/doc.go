/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package processor loads entity descriptors from YAML files and turns them
into datamapper definitions.

Descriptor file:

	classes:
	  - class: app.base
	    service: main
	    strict: true
	    attributes:
	      id:
	        type: integer
	        primary_key: true
	        auto_generate: true

	  - class: app.user
	    parent: app.base
	    collection: users
	    cache:
	      service: shared
	      prefix: app
	      ttl: 600          # seconds
	      policy:
	        insert: true
	        update: true
	        not_found: 30   # true, or a tombstone ttl in seconds
	    attributes:
	      email:
	        type: string
	        pattern: '/^[^@]+@[^@]+$/'
	      profile:
	        type: json
	        schema:
	          nickname: {type: string, required: false}

Attributes keep their file order, which becomes the schema field order.
Unknown keys at the class level are rejected.

	defs, err := processor.LoadFiles("schemas/users.yaml")
	if err != nil {
	    return err
	}
	err = env.Register(defs...)
*/
package processor
