/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package valuetype defines entity field attributes and the codecs that convert
field values between their in-memory, storage and JSON forms.

A Registry resolves type names to codecs. Names are case-insensitive, "int",
"text" and "numeric" are aliases of "integer", "string" and "number", and any
unknown name resolves to the pass-through "common" codec:

	types := valuetype.NewRegistry()
	attr, err := types.NormalizeAttribute(valuetype.Attribute{Type: "uuid", PrimaryKey: true})
	// attr.AutoGenerate, attr.RefuseUpdate and attr.IsStrict() are now true

	id := types.Get(attr.Type).DefaultValue(attr) // a fresh v4 uuid

Custom codecs can be added with Register; a codec usually embeds Common and
overrides the conversions it needs.
*/
package valuetype
