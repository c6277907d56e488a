/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
	"github.com/suparena/entitymapper/valuetype"
)

// Data is one entity: its field values, the set of changed fields and
// whether it has ever been persisted. A Data is not safe for concurrent
// mutation.
type Data struct {
	mapper *Mapper
	values map[string]any
	dirty  map[string]struct{}
	fresh  bool
}

// SetOption configures Data.Set.
type SetOption func(*setOptions)

type setOptions struct {
	force  bool
	strict bool
}

// Force allows updating refuse-update fields of a persisted entity.
func Force() SetOption {
	return func(o *setOptions) {
		o.force = true
	}
}

// NonStrict makes Set ignore unknown, deprecated and refused fields and
// skip fields that only accept strict assignments.
func NonStrict() SetOption {
	return func(o *setOptions) {
		o.strict = false
	}
}

// Mapper returns the mapper of the entity.
func (d *Data) Mapper() *Mapper { return d.mapper }

// Class returns the entity class name.
func (d *Data) Class() string { return d.mapper.class }

// IsFresh reports whether the entity has never been persisted.
func (d *Data) IsFresh() bool { return d.fresh }

// Has reports whether key holds a value, default values included.
func (d *Data) Has(key string) bool {
	_, ok := d.values[key]
	return ok
}

// IsDirty reports whether any of keys changed since the last save. Without
// keys it reports whether anything changed.
func (d *Data) IsDirty(keys ...string) bool {
	if len(keys) == 0 {
		return len(d.dirty) > 0
	}
	for _, key := range keys {
		if _, ok := d.dirty[key]; ok {
			return true
		}
	}
	return false
}

// Dirty returns the changed field names in declaration order.
func (d *Data) Dirty() []string {
	var keys []string
	for _, name := range d.mapper.schema.names {
		if _, ok := d.dirty[name]; ok {
			keys = append(keys, name)
		}
	}
	return keys
}

func (d *Data) prepareSet(key string, force bool) (valuetype.Attribute, error) {
	attr, ok := d.mapper.schema.Attribute(key)
	if !ok {
		return attr, errs.NewUndefinedPropertyError(d.Class(), key)
	}
	if attr.Deprecated {
		return attr, errs.NewDeprecatedPropertyError(d.Class(), key)
	}
	if attr.RefuseUpdate && !d.fresh && !force {
		return attr, errs.NewRefuseUpdateError(d.Class(), key)
	}
	return attr, nil
}

func (d *Data) prepareGet(key string) (valuetype.Attribute, error) {
	attr, ok := d.mapper.schema.Attribute(key)
	if !ok {
		return attr, errs.NewUndefinedPropertyError(d.Class(), key)
	}
	if attr.Deprecated {
		return attr, errs.NewDeprecatedPropertyError(d.Class(), key)
	}
	return attr, nil
}

// Set assigns a field. Values are normalized by the field codec unless they
// are null for it.
func (d *Data) Set(key string, value any, opts ...SetOption) error {
	o := setOptions{strict: true}
	for _, opt := range opts {
		opt(&o)
	}

	attr, err := d.prepareSet(key, o.force)
	if err != nil {
		if o.strict {
			return err
		}
		return nil
	}
	if attr.IsStrict() && !o.strict {
		return nil
	}

	codec := d.mapper.codec(attr)
	if !codec.IsNull(value) {
		normalized, err := codec.Normalize(value, attr)
		if err != nil {
			return errs.NewUnexpectedValueError(d.Class(), key, "", err)
		}
		value = normalized
	}

	d.change(key, value, attr)
	return nil
}

// Merge assigns several fields non-strictly.
func (d *Data) Merge(values map[string]any) error {
	for key, value := range values {
		if err := d.Set(key, value, NonStrict()); err != nil {
			return err
		}
	}
	return nil
}

func (d *Data) change(key string, value any, attr valuetype.Attribute) {
	codec := d.mapper.codec(attr)

	if old, ok := d.values[key]; ok {
		if sameValue(old, value) || (codec.IsNull(old) && codec.IsNull(value)) {
			return
		}
	} else if codec.IsNull(value) && attr.AllowNull {
		return
	}

	d.values[key] = value
	d.dirty[key] = struct{}{}
}

func sameValue(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// Get returns a copy of a field value, or the codec default when the field
// was never assigned.
func (d *Data) Get(key string) (any, error) {
	attr, err := d.prepareGet(key)
	if err != nil {
		return nil, err
	}
	codec := d.mapper.codec(attr)
	value, ok := d.values[key]
	if !ok {
		return codec.DefaultValue(attr), nil
	}
	return codec.CloneValue(value), nil
}

// MustGet is like Get but panics on an unknown or deprecated field.
func (d *Data) MustGet(key string) any {
	v, err := d.Get(key)
	if err != nil {
		panic(err)
	}
	return v
}

func (d *Data) container(key string) (valuetype.Attribute, any, error) {
	attr, err := d.prepareSet(key, false)
	if err != nil {
		return attr, nil, err
	}
	target, err := d.Get(key)
	if err != nil {
		return attr, nil, err
	}
	if !valuetype.IsContainer(target) {
		return attr, nil, errs.NewUnexpectedValueError(d.Class(), key, "is not complex type", nil)
	}
	return attr, target, nil
}

// SetIn assigns value at path inside a structured field. Missing
// intermediate maps are created.
func (d *Data) SetIn(key string, path []string, value any) error {
	return d.setIn(key, path, value, false)
}

// PushIn appends value to the list at path inside a structured field.
func (d *Data) PushIn(key string, path []string, value any) error {
	return d.setIn(key, path, value, true)
}

func (d *Data) setIn(key string, path []string, value any, push bool) error {
	attr, target, err := d.container(key)
	if err != nil {
		return err
	}
	target, err = setPath(target, path, value, push)
	if err != nil {
		return errs.NewUnexpectedValueError(d.Class(), key, "", err)
	}
	d.change(key, target, attr)
	return nil
}

// UnsetIn removes the element at path inside a structured field.
func (d *Data) UnsetIn(key string, path []string) error {
	attr, target, err := d.container(key)
	if err != nil {
		return err
	}
	d.change(key, unsetPath(target, path), attr)
	return nil
}

// GetIn returns the element at path inside a structured field. ok is false
// when the path does not exist or the field is not structured.
func (d *Data) GetIn(key string, path []string) (value any, ok bool, err error) {
	target, err := d.Get(key)
	if err != nil {
		return nil, false, err
	}
	if !valuetype.IsContainer(target) {
		return nil, false, nil
	}
	value, ok = getPath(target, path)
	return value, ok, nil
}

// Pick returns copies of assigned values. Without keys every non-protected
// field is considered.
func (d *Data) Pick(keys ...string) map[string]any {
	if len(keys) == 0 {
		for _, f := range d.mapper.schema.Fields() {
			if !f.Attribute.Protected {
				keys = append(keys, f.Name)
			}
		}
	}

	values := make(map[string]any, len(keys))
	for _, key := range keys {
		if _, ok := d.values[key]; !ok {
			continue
		}
		if v, err := d.Get(key); err == nil {
			values[key] = v
		}
	}
	return values
}

// ToJSON returns the picked values converted for JSON output.
func (d *Data) ToJSON(keys ...string) map[string]any {
	values := d.Pick(keys...)
	for key, value := range values {
		attr, _ := d.mapper.schema.Attribute(key)
		values[key] = d.mapper.codec(attr).ToJSON(value, attr)
	}
	return values
}

func (d *Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToJSON())
}

// Validate checks every field of a fresh entity, or the changed fields of a
// persisted one.
func (d *Data) Validate() error {
	schema := d.mapper.schema
	keys := schema.Names()
	if !d.fresh {
		keys = d.Dirty()
	}

	for _, key := range keys {
		attr, _ := schema.Attribute(key)
		if attr.Deprecated || (attr.AutoGenerate && d.fresh) {
			continue
		}

		value, err := d.Get(key)
		if err != nil {
			return err
		}
		codec := d.mapper.codec(attr)

		if codec.IsNull(value) {
			if !attr.AllowNull {
				return errs.NewUnexpectedValueError(d.Class(), key, "not allow null", nil)
			}
			continue
		}

		// Patterns constrain string values only.
		if s, ok := value.(string); ok && attr.HasPattern() && !attr.MatchString(s) {
			return errs.NewUnexpectedValueError(d.Class(), key, "mismatching pattern "+attr.Regexp, nil)
		}

		if s, ok := value.(string); ok && !attr.AllowTags && hasTags(s) {
			return errs.NewUnexpectedValueError(d.Class(), key, "cannot contain tags", nil)
		}

		if err := codec.Validate(value, attr); err != nil {
			return errs.NewUnexpectedValueError(d.Class(), key, "", err)
		}
	}
	return nil
}

// ID returns the primary-key value, or a map of values when the key has
// several fields.
func (d *Data) ID() any {
	id := d.IDValues()
	if len(id) == 1 {
		for _, v := range id {
			return v
		}
	}
	return map[string]any(id)
}

// IDValues returns the primary-key values by field name.
func (d *Data) IDValues() storagemodels.Key {
	primaryKey := d.mapper.schema.primaryKey
	id := make(storagemodels.Key, len(primaryKey))
	for _, name := range primaryKey {
		v, _ := d.Get(name)
		id[name] = v
	}
	return id
}

// Clone returns a fresh copy without the primary key. Generated keys get a
// new default value. Every copied field is dirty.
func (d *Data) Clone() *Data {
	c := &Data{
		mapper: d.mapper,
		values: make(map[string]any, len(d.values)),
		dirty:  make(map[string]struct{}, len(d.values)),
		fresh:  true,
	}

	for key, value := range d.values {
		attr, _ := d.mapper.schema.Attribute(key)
		codec := d.mapper.codec(attr)
		if attr.PrimaryKey {
			if def := codec.DefaultValue(attr); !codec.IsNull(def) && !isZero(def) {
				c.values[key] = def
				c.dirty[key] = struct{}{}
			}
			continue
		}
		c.values[key] = codec.CloneValue(value)
		c.dirty[key] = struct{}{}
	}
	return c
}

func isZero(v any) bool {
	rv := reflect.ValueOf(v)
	return !rv.IsValid() || rv.IsZero()
}

// pack installs restored values and marks the entity clean and persisted.
func (d *Data) pack(values map[string]any, replace bool) {
	if replace || d.values == nil {
		d.values = values
	} else {
		for k, v := range values {
			d.values[k] = v
		}
	}
	d.dirty = make(map[string]struct{})
	d.fresh = false
}

// Save stores the entity through its mapper.
func (d *Data) Save(ctx context.Context) error {
	return d.mapper.Save(ctx, d)
}

// Destroy deletes the entity through its mapper.
func (d *Data) Destroy(ctx context.Context) error {
	return d.mapper.Destroy(ctx, d)
}

// Refresh reloads the entity through its mapper.
func (d *Data) Refresh(ctx context.Context) error {
	_, err := d.mapper.Refresh(ctx, d)
	return err
}

func (d *Data) String() string {
	return fmt.Sprintf("%s%v", d.Class(), d.Pick())
}
