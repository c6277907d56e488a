/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import (
	"context"
	"fmt"
	"log/slog"

	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
	"github.com/suparena/entitymapper/valuetype"
)

// Mapper moves the entities of one class between memory and storage.
// Mappers are built and memoized by an Environment.
type Mapper struct {
	env         *Environment
	class       string
	options     Options
	schema      *Schema
	entityHooks *Hooks
	hooks       *Hooks
	storage     Storage
	logger      *slog.Logger
}

// Class returns the entity class name.
func (m *Mapper) Class() string { return m.class }

// Options returns the merged mapper options.
func (m *Mapper) Options() Options { return m.options }

// Schema returns the normalized attributes.
func (m *Mapper) Schema() *Schema { return m.schema }

// Environment returns the owning environment.
func (m *Mapper) Environment() *Environment { return m.env }

// Logger returns the mapper logger.
func (m *Mapper) Logger() *slog.Logger { return m.logger }

// Storage returns the current, possibly decorated, storage.
func (m *Mapper) Storage() Storage { return m.storage }

// IsReadonly reports whether Save and Destroy are refused.
func (m *Mapper) IsReadonly() bool { return m.options.IsReadonly() }

// PrimaryKey returns the primary-key field names.
func (m *Mapper) PrimaryKey() []string { return m.schema.PrimaryKey() }

// Before registers fn to run before e, after the entity hooks.
func (m *Mapper) Before(e Event, fn HookFunc) *Mapper {
	m.hooks.Before(e, fn)
	return m
}

// After registers fn to run after e, after the entity hooks.
func (m *Mapper) After(e Event, fn HookFunc) *Mapper {
	m.hooks.After(e, fn)
	return m
}

// WrapStorage decorates the mapper storage. Wrappers installed later run
// first.
func (m *Mapper) WrapStorage(wrap StorageWrapper) {
	m.storage = wrap(m.storage)
}

func (m *Mapper) codec(attr valuetype.Attribute) valuetype.Codec {
	return m.env.types.Get(attr.Type)
}

func (m *Mapper) before(ctx context.Context, e Event, d *Data) error {
	if err := m.entityHooks.runBefore(ctx, e, d); err != nil {
		return err
	}
	return m.hooks.runBefore(ctx, e, d)
}

func (m *Mapper) after(ctx context.Context, e Event, d *Data) error {
	if err := m.entityHooks.runAfter(ctx, e, d); err != nil {
		return err
	}
	return m.hooks.runAfter(ctx, e, d)
}

// NewOption configures Mapper.New.
type NewOption func(*newOptions)

type newOptions struct {
	fresh bool
}

// Fresh marks whether the new entity has never been persisted. Entities
// are fresh by default.
func Fresh(fresh bool) NewOption {
	return func(o *newOptions) {
		o.fresh = fresh
	}
}

// New builds an entity from values. Unknown fields are ignored.
func (m *Mapper) New(values map[string]any, opts ...NewOption) (*Data, error) {
	o := newOptions{fresh: true}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Data{
		mapper: m,
		values: make(map[string]any),
		dirty:  make(map[string]struct{}),
		fresh:  o.fresh,
	}

	for _, name := range m.schema.Names() {
		value, ok := values[name]
		if !ok {
			continue
		}
		if err := d.Set(name, value, Force()); err != nil {
			return nil, err
		}
	}

	if d.fresh {
		for _, f := range m.schema.Fields() {
			if _, ok := d.values[f.Name]; ok {
				continue
			}
			if def := m.codec(f.Attribute).DefaultValue(f.Attribute); def != nil {
				d.change(f.Name, def, f.Attribute)
			}
		}
	} else {
		d.dirty = make(map[string]struct{})
	}
	return d, nil
}

// Pack restores a storage record into an entity. When existing is nil a new
// persisted entity is built from the record alone; otherwise the record is
// merged into existing. Either way the result is clean and not fresh.
func (m *Mapper) Pack(record storagemodels.Record, existing *Data) (*Data, error) {
	values := make(map[string]any, len(record))
	for key, raw := range record {
		if !m.schema.HasAttribute(key) {
			continue
		}
		attr, _ := m.schema.Attribute(key)
		value, err := m.codec(attr).Restore(raw, attr)
		if err != nil {
			return nil, errs.NewUnexpectedValueError(m.class, key, "restore failed", err)
		}
		values[key] = value
	}

	if existing != nil {
		existing.pack(values, false)
		return existing, nil
	}

	d := &Data{mapper: m, dirty: make(map[string]struct{})}
	d.pack(values, true)
	return d, nil
}

// UnpackOption configures Mapper.Unpack.
type UnpackOption func(*unpackOptions)

type unpackOptions struct {
	dirtyOnly bool
}

// DirtyOnly restricts Unpack to changed fields.
func DirtyOnly() UnpackOption {
	return func(o *unpackOptions) {
		o.dirtyOnly = true
	}
}

// Unpack converts the entity values to a storage record.
func (m *Mapper) Unpack(d *Data, opts ...UnpackOption) (storagemodels.Record, error) {
	var o unpackOptions
	for _, opt := range opts {
		opt(&o)
	}

	record := storagemodels.Record{}
	for key, value := range d.Pick(m.schema.Names()...) {
		if o.dirtyOnly && !d.IsDirty(key) {
			continue
		}
		if value != nil {
			attr, _ := m.schema.Attribute(key)
			stored, err := m.codec(attr).Store(value, attr)
			if err != nil {
				return nil, errs.NewUnexpectedValueError(m.class, key, "store failed", err)
			}
			value = stored
		}
		record[key] = value
	}
	return record, nil
}

// NormalizeID turns a scalar (single primary key) or a map of primary-key
// values into a Key. Values go through the field codecs.
func (m *Mapper) NormalizeID(id any) (storagemodels.Key, error) {
	primaryKey := m.schema.PrimaryKey()

	var values map[string]any
	switch v := id.(type) {
	case storagemodels.Key:
		values = v
	case map[string]any:
		values = v
	case storagemodels.Record:
		values = v
	default:
		values = map[string]any{primaryKey[0]: id}
	}

	key := make(storagemodels.Key, len(primaryKey))
	for _, name := range primaryKey {
		value, ok := values[name]
		if !ok || value == nil {
			return nil, errs.NewUnexpectedValueError(m.class, name, "illegal id value", nil)
		}
		attr, _ := m.schema.Attribute(name)
		normalized, err := m.codec(attr).Normalize(value, attr)
		if err != nil {
			return nil, errs.NewUnexpectedValueError(m.class, name, "illegal id value", err)
		}
		key[name] = normalized
	}
	return key, nil
}

// storeKey converts normalized id values to their storage form.
func (m *Mapper) storeKey(id storagemodels.Key) (storagemodels.Key, error) {
	key := make(storagemodels.Key, len(id))
	for name, value := range id {
		attr, ok := m.schema.Attribute(name)
		if !ok || value == nil {
			key[name] = value
			continue
		}
		stored, err := m.codec(attr).Store(value, attr)
		if err != nil {
			return nil, errs.NewUnexpectedValueError(m.class, name, "illegal id value", err)
		}
		key[name] = stored
	}
	return key, nil
}

// Find returns the entity stored under id, or nil, nil when there is none.
// Found entities are tracked by the identity map, so repeated finds return
// the same instance until the environment is reset.
func (m *Mapper) Find(ctx context.Context, id any) (*Data, error) {
	key, err := m.NormalizeID(id)
	if err != nil {
		return nil, err
	}
	return m.find(ctx, key, nil)
}

func (m *Mapper) find(ctx context.Context, id storagemodels.Key, existing *Data) (*Data, error) {
	identities := m.env.identities
	if existing == nil {
		if e, ok := identities.Get(m.class, id); ok {
			if d, ok := e.(*Data); ok {
				return d, nil
			}
		}
	}

	record, err := m.storage.DoFind(ctx, id)
	if err != nil {
		return nil, wrapStorage(m.class, "find", err)
	}
	if record == nil {
		return nil, nil
	}

	d, err := m.Pack(record, existing)
	if err != nil {
		return nil, err
	}
	identities.Set(d)
	return d, nil
}

// FindOrFail is like Find but reports a miss as a NotFoundError.
func (m *Mapper) FindOrFail(ctx context.Context, id any) (*Data, error) {
	key, err := m.NormalizeID(id)
	if err != nil {
		return nil, err
	}
	d, err := m.find(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errs.NewNotFoundError(m.class, key.String())
	}
	return d, nil
}

// FindOrCreate returns the stored entity or a fresh one carrying the id
// fields.
func (m *Mapper) FindOrCreate(ctx context.Context, id any) (*Data, error) {
	key, err := m.NormalizeID(id)
	if err != nil {
		return nil, err
	}
	d, err := m.find(ctx, key, nil)
	if err != nil || d != nil {
		return d, err
	}
	return m.New(key)
}

// Refresh reloads d from storage, discarding unsaved changes. Fresh
// entities are returned untouched.
func (m *Mapper) Refresh(ctx context.Context, d *Data) (*Data, error) {
	if d.IsFresh() {
		return d, nil
	}
	if err := m.before(ctx, EventRefresh, d); err != nil {
		return nil, err
	}

	id := d.IDValues()
	found, err := m.find(ctx, id, d)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errs.NewNotFoundError(m.class, id.String())
	}

	if err := m.after(ctx, EventRefresh, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Save inserts a fresh entity or writes the changes of a persisted one.
// Clean persisted entities are left alone.
func (m *Mapper) Save(ctx context.Context, d *Data) error {
	if m.IsReadonly() {
		return errs.NewReadonlyError(m.class, "save")
	}

	fresh := d.IsFresh()
	if !fresh && !d.IsDirty() {
		return nil
	}

	if err := m.before(ctx, EventSave, d); err != nil {
		return err
	}

	var err error
	if fresh {
		err = m.insert(ctx, d)
	} else {
		err = m.update(ctx, d)
	}
	if err != nil {
		return err
	}

	m.logger.Debug("entity saved", "id", d.IDValues().String(), "insert", fresh)
	return m.after(ctx, EventSave, d)
}

func (m *Mapper) insert(ctx context.Context, d *Data) error {
	if err := m.before(ctx, EventInsert, d); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	id, err := m.storage.DoInsert(ctx, d)
	if err != nil {
		return wrapStorage(m.class, "insert", err)
	}
	if _, err := m.Pack(storagemodels.Record(id), d); err != nil {
		return err
	}

	return m.after(ctx, EventInsert, d)
}

func (m *Mapper) update(ctx context.Context, d *Data) error {
	if err := m.before(ctx, EventUpdate, d); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}

	if err := m.storage.DoUpdate(ctx, d); err != nil {
		return wrapStorage(m.class, "update", err)
	}
	if _, err := m.Pack(nil, d); err != nil {
		return err
	}

	return m.after(ctx, EventUpdate, d)
}

// Destroy deletes a persisted entity and stops tracking it. Fresh entities
// are ignored.
func (m *Mapper) Destroy(ctx context.Context, d *Data) error {
	if m.IsReadonly() {
		return errs.NewReadonlyError(m.class, "destroy")
	}
	if d.IsFresh() {
		return nil
	}

	if err := m.before(ctx, EventDelete, d); err != nil {
		return err
	}
	if err := m.storage.DoDelete(ctx, d); err != nil {
		return wrapStorage(m.class, "delete", err)
	}
	if err := m.after(ctx, EventDelete, d); err != nil {
		return err
	}

	m.env.identities.Remove(m.class, d.IDValues())
	m.logger.Debug("entity destroyed", "id", d.IDValues().String())
	return nil
}

// wrapStorage reports a storage failure once, keeping errors that already
// carry a mapper-level meaning.
func wrapStorage(class, operation string, err error) error {
	if errs.IsStorage(err) || errs.IsProperty(err) || errs.IsConfig(err) {
		return err
	}
	return errs.NewStorageError(class, operation, err)
}

func (m *Mapper) String() string {
	return fmt.Sprintf("Mapper(%s)", m.class)
}
