/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import (
	"fmt"

	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/valuetype"
)

// Field is one named attribute of a Definition.
type Field struct {
	Name      string
	Attribute valuetype.Attribute
}

// Definition describes an entity class. A child names its Parent and
// inherits its options, fields and hooks; a child field with the same name
// replaces the parent's in place, new fields are appended.
type Definition struct {
	Class   string
	Parent  string
	Options Options
	Fields  []Field
	// Hooks run before the mapper's own hooks.
	Hooks *Hooks
}

// Schema is the normalized, ordered attribute set of a mapper.
type Schema struct {
	names      []string
	attributes map[string]valuetype.Attribute
	primaryKey []string
}

func newSchema(types *valuetype.Registry, class string, options Options, fields []Field) (*Schema, error) {
	s := &Schema{attributes: make(map[string]valuetype.Attribute, len(fields))}

	for _, f := range fields {
		attr, err := types.NormalizeAttribute(f.Attribute)
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %q: %w", class, f.Name, err)
		}
		if attr.Strict == nil {
			attr = attr.WithStrict(options.IsStrict())
		}
		if attr.PrimaryKey && !attr.Deprecated {
			s.primaryKey = append(s.primaryKey, f.Name)
		}
		s.names = append(s.names, f.Name)
		s.attributes[f.Name] = attr
	}

	if len(s.primaryKey) == 0 {
		return nil, fmt.Errorf("%w: %s: undefined primary key", errs.ErrConfig, class)
	}
	return s, nil
}

// mergeFields overlays child on parent keeping declaration order.
func mergeFields(parent, child []Field) []Field {
	out := append([]Field(nil), parent...)
	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.Name] = i
	}
	for _, f := range child {
		if i, ok := index[f.Name]; ok {
			out[i] = f
			continue
		}
		index[f.Name] = len(out)
		out = append(out, f)
	}
	return out
}

// Attribute returns the attribute for name, deprecated ones included.
func (s *Schema) Attribute(name string) (valuetype.Attribute, bool) {
	attr, ok := s.attributes[name]
	return attr, ok
}

// HasAttribute reports whether name is a live (non-deprecated) attribute.
func (s *Schema) HasAttribute(name string) bool {
	attr, ok := s.attributes[name]
	return ok && !attr.Deprecated
}

// Names returns the live attribute names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.names))
	for _, name := range s.names {
		if !s.attributes[name].Deprecated {
			names = append(names, name)
		}
	}
	return names
}

// Fields returns the live attributes in declaration order.
func (s *Schema) Fields() []Field {
	names := s.Names()
	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = Field{Name: name, Attribute: s.attributes[name]}
	}
	return fields
}

// PrimaryKey returns the primary-key field names.
func (s *Schema) PrimaryKey() []string {
	return append([]string(nil), s.primaryKey...)
}
