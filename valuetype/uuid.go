/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

import (
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	errs "github.com/suparena/entitymapper/errors"
)

// UUID holds identifiers in their canonical string form. Primary key UUIDs
// are generated on creation.
type UUID struct{ Common }

func (UUID) NormalizeAttribute(attr Attribute) Attribute {
	if attr.PrimaryKey {
		attr.AutoGenerate = true
	}
	return attr
}

func (UUID) Normalize(value any, attr Attribute) (any, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case uuid.UUID:
		s = v.String()
	case strfmt.UUID:
		s = v.String()
	case []byte:
		s = string(v)
	default:
		return nil, errs.NewValidationError("", fmt.Sprintf("unexpected uuid value of type %T", value))
	}
	if attr.Upper {
		s = strings.ToUpper(s)
	}
	return s, nil
}

func (u UUID) Restore(value any, attr Attribute) (any, error) {
	if value == nil {
		return nil, nil
	}
	return u.Normalize(value, attr)
}

func (UUID) DefaultValue(attr Attribute) any {
	if !attr.AutoGenerate {
		return attr.Default
	}
	id := uuid.NewString()
	if attr.Upper {
		id = strings.ToUpper(id)
	}
	return id
}

func (UUID) Validate(value any, _ Attribute) error {
	s, ok := value.(string)
	if !ok || !strfmt.IsUUID(s) {
		return errs.NewValidationError("", fmt.Sprintf("%v is not a valid uuid", value))
	}
	return nil
}
