/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	errs "github.com/suparena/entitymapper/errors"
)

// Codec converts one kind of field value between its in-memory, storage and
// JSON forms. Codecs are stateless and shared by every mapper using a
// Registry.
type Codec interface {
	// NormalizeAttribute applies type-specific defaults.
	NormalizeAttribute(attr Attribute) Attribute
	// Normalize converts an assigned value to the in-memory form.
	Normalize(value any, attr Attribute) (any, error)
	// Store converts an in-memory value to the storage form.
	Store(value any, attr Attribute) (any, error)
	// Restore converts a storage value to the in-memory form.
	Restore(value any, attr Attribute) (any, error)
	DefaultValue(attr Attribute) any
	IsNull(value any) bool
	CloneValue(value any) any
	// Validate checks a non-null in-memory value.
	Validate(value any, attr Attribute) error
	ToJSON(value any, attr Attribute) any
}

// Common passes values through unchanged. Other codecs embed it.
type Common struct{}

func (Common) NormalizeAttribute(attr Attribute) Attribute { return attr }

func (Common) Normalize(value any, _ Attribute) (any, error) { return value, nil }

func (Common) Store(value any, _ Attribute) (any, error) { return value, nil }

func (Common) Restore(value any, _ Attribute) (any, error) { return value, nil }

func (Common) DefaultValue(attr Attribute) any { return DeepCopy(attr.Default) }

// IsNull treats nil and the empty string as null.
func (Common) IsNull(value any) bool { return value == nil || value == "" }

func (Common) CloneValue(value any) any { return DeepCopy(value) }

func (Common) Validate(any, Attribute) error { return nil }

func (Common) ToJSON(value any, _ Attribute) any { return value }

// Integer holds int64 values.
type Integer struct{ Common }

func (Integer) Normalize(value any, _ Attribute) (any, error) {
	return toInt64(value)
}

func (Integer) Store(value any, _ Attribute) (any, error) {
	if value == nil {
		return nil, nil
	}
	return toInt64(value)
}

func (Integer) Restore(value any, _ Attribute) (any, error) {
	if value == nil {
		return nil, nil
	}
	return toInt64(value)
}

// Number holds float64 values.
type Number struct{ Common }

func (Number) Normalize(value any, _ Attribute) (any, error) {
	return toFloat64(value)
}

func (Number) Store(value any, _ Attribute) (any, error) {
	if value == nil {
		return nil, nil
	}
	return toFloat64(value)
}

func (Number) Restore(value any, _ Attribute) (any, error) {
	if value == nil {
		return nil, nil
	}
	return toFloat64(value)
}

// String holds text values.
type String struct{ Common }

func (String) Normalize(value any, _ Attribute) (any, error) {
	return toString(value)
}

func (String) Restore(value any, _ Attribute) (any, error) {
	if value == nil {
		return nil, nil
	}
	return toString(value)
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errs.NewValidationError("", fmt.Sprintf("integer %d overflows int64", v))
		}
		return int64(v), nil
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, errs.NewValidationError("", fmt.Sprintf("%q is not an integer", v.String()))
		}
		return floatToInt64(f)
	case []byte:
		return toInt64(string(v))
	case string:
		s := strings.TrimSpace(v)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errs.NewValidationError("", fmt.Sprintf("%q is not an integer", v))
		}
		return floatToInt64(f)
	}
	return 0, errs.NewValidationError("", fmt.Sprintf("unexpected integer value of type %T", value))
}

// floatToInt64 accepts only integral values within the int64 range.
func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errs.NewValidationError("", fmt.Sprintf("%v is not an integer", f))
	}
	// -2^63 is exact as a float64, 2^63 is the first value out of range.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, errs.NewValidationError("", fmt.Sprintf("%v overflows int64", f))
	}
	return int64(f), nil
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errs.NewValidationError("", fmt.Sprintf("%q is not a number", v.String()))
		}
		return f, nil
	case []byte:
		return toFloat64(string(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errs.NewValidationError("", fmt.Sprintf("%q is not a number", v))
		}
		return f, nil
	}
	i, err := toInt64(value)
	if err != nil {
		return 0, errs.NewValidationError("", fmt.Sprintf("unexpected number value of type %T", value))
	}
	return float64(i), nil
}

func toString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case bool:
		return strconv.FormatBool(v), nil
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	}
	return "", errs.NewValidationError("", fmt.Sprintf("unexpected string value of type %T", value))
}
