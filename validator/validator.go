/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package validator checks structured values against a nested rule schema.
//
// A Schema maps field names to rules. Every field is required unless the rule
// says otherwise; "array", "object" and "json" rules may describe their
// children through Keys (named fields) or Value (every element).
package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-openapi/strfmt"
	errs "github.com/suparena/entitymapper/errors"
)

// Rule describes the constraints for one value.
type Rule struct {
	Type          string `yaml:"type" json:"type,omitempty"`
	Required      *bool  `yaml:"required" json:"required,omitempty"`
	AllowEmpty    bool   `yaml:"allow_empty" json:"allow_empty,omitempty"`
	AllowNegative *bool  `yaml:"allow_negative" json:"allow_negative,omitempty"`
	Eq            any    `yaml:"eq" json:"eq,omitempty"`
	Same          any    `yaml:"same" json:"same,omitempty"`
	EnumEq        []any  `yaml:"enum_eq" json:"enum_eq,omitempty"`
	EnumSame      []any  `yaml:"enum_same" json:"enum_same,omitempty"`
	Regexp        string `yaml:"regexp" json:"regexp,omitempty"`
	Keys          Schema `yaml:"keys" json:"keys,omitempty"`
	Value         *Rule  `yaml:"value" json:"value,omitempty"`
}

// Schema maps field names to rules.
type Schema map[string]*Rule

// formatAliases maps rule types onto strfmt format names.
var formatAliases = map[string]string{
	"url": "uri",
}

// Validate checks values against schema and returns the first violation as
// an *errors.ValidationError whose Field is the dotted path of the value.
func Validate(values any, schema Schema) error {
	if len(schema) == 0 {
		return nil
	}
	m, ok := asMap(values)
	if !ok {
		return errs.NewValidationError("", "value must be a key/value container")
	}
	return validateMap("", m, schema)
}

func validateMap(path string, values map[string]any, schema Schema) error {
	keys := make([]string, 0, len(schema))
	for k := range schema {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rule := schema[key]
		if rule == nil {
			rule = &Rule{}
		}
		field := joinPath(path, key)

		value, ok := values[key]
		if !ok || value == nil {
			if rule.required() {
				return errs.NewValidationError(field, "required")
			}
			continue
		}
		if err := rule.check(field, value); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rule) required() bool {
	return r.Required == nil || *r.Required
}

func (r *Rule) allowNegative() bool {
	return r.AllowNegative == nil || *r.AllowNegative
}

func (r *Rule) check(field string, value any) error {
	if isEmpty(value) {
		if r.AllowEmpty {
			return nil
		}
		return errs.NewValidationError(field, "not allow empty")
	}

	typ := strings.ToLower(r.Type)
	switch typ {
	case "":
	case "string":
		if _, ok := value.(string); !ok {
			return errs.NewValidationError(field, "must be string")
		}
	case "integer", "int":
		n, ok := toFloat(value)
		if !ok || n != math.Trunc(n) {
			return errs.NewValidationError(field, "must be integer")
		}
		if n < 0 && !r.allowNegative() {
			return errs.NewValidationError(field, "not allow negative")
		}
	case "numeric", "number":
		n, ok := toFloat(value)
		if !ok {
			return errs.NewValidationError(field, "must be numeric")
		}
		if n < 0 && !r.allowNegative() {
			return errs.NewValidationError(field, "not allow negative")
		}
	case "boolean", "bool":
		if _, ok := value.(bool); !ok {
			return errs.NewValidationError(field, "must be boolean")
		}
	case "array":
		if err := r.checkContainer(field, value); err != nil {
			return err
		}
	case "object":
		if _, ok := asMap(value); !ok {
			return errs.NewValidationError(field, "must be object")
		}
		if err := r.checkContainer(field, value); err != nil {
			return err
		}
	case "json":
		s, ok := value.(string)
		if !ok {
			return errs.NewValidationError(field, "must be json string")
		}
		var decoded any
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return errs.NewValidationError(field, "invalid json string")
		}
		if err := r.checkContainer(field, decoded); err != nil {
			return err
		}
		return r.checkValue(field, value)
	default:
		name := typ
		if alias, ok := formatAliases[typ]; ok {
			name = alias
		}
		if !strfmt.Default.ContainsName(name) {
			return errs.NewValidationError(field, fmt.Sprintf("unknown type %q", r.Type))
		}
		s, ok := value.(string)
		if !ok || !strfmt.Default.Validates(name, s) {
			return errs.NewValidationError(field, "invalid "+typ)
		}
	}

	return r.checkValue(field, value)
}

func (r *Rule) checkValue(field string, value any) error {
	if r.Eq != nil && !looseEqual(value, r.Eq) {
		return errs.NewValidationError(field, fmt.Sprintf("must equal %v", r.Eq))
	}
	if r.Same != nil && !reflect.DeepEqual(value, r.Same) {
		return errs.NewValidationError(field, fmt.Sprintf("must be same as %v", r.Same))
	}
	if len(r.EnumEq) > 0 {
		found := false
		for _, candidate := range r.EnumEq {
			if looseEqual(value, candidate) {
				found = true
				break
			}
		}
		if !found {
			return errs.NewValidationError(field, "not in enum")
		}
	}
	if len(r.EnumSame) > 0 {
		found := false
		for _, candidate := range r.EnumSame {
			if reflect.DeepEqual(value, candidate) {
				found = true
				break
			}
		}
		if !found {
			return errs.NewValidationError(field, "not in enum")
		}
	}
	if r.Regexp != "" {
		re, err := CompilePattern(r.Regexp)
		if err != nil {
			return errs.NewValidationError(field, err.Error())
		}
		if !re.MatchString(fmt.Sprint(value)) {
			return errs.NewValidationError(field, "mismatching pattern")
		}
	}
	return nil
}

func (r *Rule) checkContainer(field string, value any) error {
	if r.Keys != nil {
		m, ok := asMap(value)
		if !ok {
			return errs.NewValidationError(field, "must be key/value container")
		}
		if err := validateMap(field, m, r.Keys); err != nil {
			return err
		}
	}

	switch v := value.(type) {
	case map[string]any:
		if r.Value == nil {
			return nil
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := r.checkElement(joinPath(field, k), v[k]); err != nil {
				return err
			}
		}
	case []any:
		if r.Value == nil {
			return nil
		}
		for i, elem := range v {
			if err := r.checkElement(joinPath(field, strconv.Itoa(i)), elem); err != nil {
				return err
			}
		}
	default:
		return errs.NewValidationError(field, "must be array")
	}
	return nil
}

func (r *Rule) checkElement(field string, elem any) error {
	if elem == nil {
		if r.Value.required() {
			return errs.NewValidationError(field, "required")
		}
		return nil
	}
	return r.Value.check(field, elem)
}

func asMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case []any:
		m := make(map[string]any, len(v))
		for i, elem := range v {
			m[strconv.Itoa(i)] = elem
		}
		return m, true
	}
	return nil, false
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func looseEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
