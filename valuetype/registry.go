/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/validator"
)

// Names of the built-in codecs.
const (
	TypeCommon   = "common"
	TypeInteger  = "integer"
	TypeNumber   = "number"
	TypeString   = "string"
	TypeDatetime = "datetime"
	TypeUUID     = "uuid"
	TypeComplex  = "complex"
	TypeJSON     = "json"
	TypePgArray  = "pg_array"
	TypePgHstore = "pg_hstore"
)

var aliases = map[string]string{
	"int":     TypeInteger,
	"text":    TypeString,
	"numeric": TypeNumber,
}

// Registry resolves type names to codecs. Unknown names resolve to the
// common codec.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns a registry holding the built-in codecs.
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(TypeCommon, Common{})
	r.Register(TypeInteger, Integer{})
	r.Register(TypeNumber, Number{})
	r.Register(TypeString, String{})
	r.Register(TypeDatetime, Datetime{})
	r.Register(TypeUUID, UUID{})
	r.Register(TypeComplex, Complex{})
	r.Register(TypeJSON, JSON{})
	r.Register(TypePgArray, PgArray{})
	r.Register(TypePgHstore, PgHstore{})
	return r
}

// Register adds or replaces the codec for name.
func (r *Registry) Register(name string, codec Codec) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[strings.ToLower(name)] = codec
	return r
}

// Get returns the codec for name.
func (r *Registry) Get(name string) Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if codec, ok := r.codecs[r.resolve(name)]; ok {
		return codec
	}
	return r.codecs[TypeCommon]
}

// Names lists the registered type names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.codecs))
	for name := range r.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) resolve(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[name]; ok {
		return alias
	}
	if _, ok := r.codecs[name]; !ok {
		return TypeCommon
	}
	return name
}

// NormalizeAttribute fills in defaults and enforces the attribute rules:
// primary keys are non-null, refuse updates and are strict; nullable fields
// have no default; protected fields are strict unless told otherwise.
func (r *Registry) NormalizeAttribute(attr Attribute) (Attribute, error) {
	r.mu.RLock()
	attr.Type = r.resolve(attr.Type)
	r.mu.RUnlock()

	if attr.Pattern != "" {
		if attr.Regexp == "" {
			attr.Regexp = attr.Pattern
		}
		attr.Pattern = ""
	}

	attr = r.Get(attr.Type).NormalizeAttribute(attr)

	if attr.AllowNull {
		attr.Default = nil
	}
	if attr.PrimaryKey {
		attr.AllowNull = false
		attr.RefuseUpdate = true
		attr = attr.WithStrict(true)
	}
	if attr.Protected && attr.Strict == nil {
		attr = attr.WithStrict(true)
	}

	attr.re = nil
	if attr.Regexp != "" {
		re, err := validator.CompilePattern(attr.Regexp)
		if err != nil {
			return attr, fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		attr.re = re
	}
	return attr, nil
}
