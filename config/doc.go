/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package config loads the entitymapper configuration.

Values are layered in this order, later layers winning:

 1. built-in defaults
 2. the YAML file passed to Load
 3. a .env file next to the YAML file or in the working directory
 4. environment variables

Environment variables use the ENTITYMAPPER_ prefix (ENTITYMAPPER_LOGGING_LEVEL,
ENTITYMAPPER_REGISTRY_ENABLED, ENTITYMAPPER_SCHEMAS ...). AWS credentials
keep their usual names: AWS_REGION, AWS_ACCESS_KEY and AWS_SECRET_KEY.

Example file:

	logging:
	  level: debug
	  format: text
	services:
	  - name: main
	    driver: sqlite
	    sqlite:
	      path: ./data/app.db
	      wal_mode: true
	caches:
	  - name: entities
	    driver: dynamodb
	    dynamodb:
	      table: entity-cache
	schemas:
	  - ./schemas/users.yaml
*/
package config
