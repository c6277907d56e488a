/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package datamapper maps schema-described entities to storage services.

An Environment holds entity Definitions, the shared type registry and the
identity map. Each class gets one memoized Mapper, which builds entities
(Data), tracks their changes and persists them through a Storage:

	env := datamapper.NewEnvironment(datamapper.WithServices(container))
	_ = env.Register(datamapper.Definition{
		Class:   "app.user",
		Options: datamapper.Options{Service: "main", Collection: "users"},
		Fields: []datamapper.Field{
			{Name: "id", Attribute: valuetype.Attribute{Type: "integer", PrimaryKey: true, AutoGenerate: true}},
			{Name: "email", Attribute: valuetype.Attribute{Type: "string", Pattern: `/@/`}},
		},
	})

	users, _ := env.Mapper("app.user")
	u, _ := users.New(map[string]any{"email": "a@example.com"})
	err := u.Save(ctx)

Hooks registered with Before and After run around save, insert, update,
delete and refresh; definition hooks run before mapper hooks. Storage can be
decorated with WrapStorage, which is how the cache package layers a side
cache onto any mapper.
*/
package datamapper
