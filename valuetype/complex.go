/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

import (
	"bytes"
	"encoding/json"
	"fmt"

	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/validator"
)

// Complex holds structured values: map[string]any or []any. An optional
// Schema is checked by the validator package.
type Complex struct{ Common }

func (Complex) Normalize(value any, _ Attribute) (any, error) {
	return toContainer(value)
}

func (c Complex) Store(value any, attr Attribute) (any, error) {
	value = trimValue(value, attr)
	if c.IsNull(value) {
		return nil, nil
	}
	return value, nil
}

func (c Complex) Restore(value any, _ Attribute) (any, error) {
	if c.IsNull(value) {
		return map[string]any{}, nil
	}
	return value, nil
}

func (Complex) DefaultValue(attr Attribute) any {
	if attr.Default != nil {
		return DeepCopy(attr.Default)
	}
	return map[string]any{}
}

func (Complex) IsNull(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case map[string]string:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

func (Complex) Validate(value any, attr Attribute) error {
	if len(attr.Schema) == 0 {
		return nil
	}
	return validator.Validate(trimValue(value, attr), attr.Schema)
}

// JSON is a Complex value stored as JSON text.
type JSON struct{ Complex }

func (JSON) Normalize(value any, _ Attribute) (any, error) {
	switch v := value.(type) {
	case string:
		return decodeJSON([]byte(v))
	case []byte:
		return decodeJSON(v)
	}
	return toContainer(value)
}

func (j JSON) Store(value any, attr Attribute) (any, error) {
	value = trimValue(value, attr)
	if j.IsNull(value) {
		return nil, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}
	return string(b), nil
}

func (j JSON) Restore(value any, _ Attribute) (any, error) {
	if j.IsNull(value) {
		return map[string]any{}, nil
	}
	switch v := value.(type) {
	case string:
		return decodeJSON([]byte(v))
	case []byte:
		if len(v) == 0 {
			return map[string]any{}, nil
		}
		return decodeJSON(v)
	}
	return toContainer(value)
}

func decodeJSON(data []byte) (any, error) {
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&out); err != nil {
		return nil, errs.NewValidationError("", fmt.Sprintf("invalid json: %v", err))
	}
	if dec.More() {
		return nil, errs.NewValidationError("", "invalid json: trailing data")
	}
	if out == nil {
		return map[string]any{}, nil
	}
	if !IsContainer(out) {
		return nil, errs.NewValidationError("", fmt.Sprintf("json value must be an object or array, got %T", out))
	}
	return out, nil
}

func toContainer(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any, []any:
		return v, nil
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, elem := range v {
			out[k] = elem
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = elem
		}
		return out, nil
	case string:
		if v == "" {
			return map[string]any{}, nil
		}
	}
	return nil, errs.NewValidationError("", fmt.Sprintf("expects a map or list value, got %T", value))
}

func trimValue(value any, attr Attribute) any {
	if !attr.TrimsValues() {
		return value
	}
	return Trim(value)
}
