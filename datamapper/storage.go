/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import (
	"context"
	"fmt"

	"github.com/suparena/entitymapper/datastore"
	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

// Storage performs the raw storage calls of a mapper. Ids are normalized
// in-memory values; records are in storage form.
type Storage interface {
	// DoFind returns the record stored under id, or nil, nil when there is
	// none.
	DoFind(ctx context.Context, id storagemodels.Key) (storagemodels.Record, error)
	// DoInsert writes d and returns the primary-key values generated by the
	// backend, if any.
	DoInsert(ctx context.Context, d *Data) (storagemodels.Key, error)
	DoUpdate(ctx context.Context, d *Data) error
	DoDelete(ctx context.Context, d *Data) error
}

// StorageWrapper decorates a Storage.
type StorageWrapper func(next Storage) Storage

// serviceStorage talks to the datastore.DataStore named by the mapper's
// service option.
type serviceStorage struct {
	mapper *Mapper
}

func (s *serviceStorage) dataStore() (datastore.DataStore, error) {
	m := s.mapper
	services := m.env.Services()
	if services == nil {
		return nil, fmt.Errorf("%w: %s: no service locator configured", errs.ErrConfig, m.class)
	}
	if m.options.Service == "" {
		return nil, fmt.Errorf("%w: %s: service option is empty", errs.ErrConfig, m.class)
	}
	return services.DataStore(m.options.Service)
}

func (s *serviceStorage) DoFind(ctx context.Context, id storagemodels.Key) (storagemodels.Record, error) {
	ds, err := s.dataStore()
	if err != nil {
		return nil, err
	}
	key, err := s.mapper.storeKey(id)
	if err != nil {
		return nil, err
	}
	return ds.Get(ctx, s.mapper.options.Collection, key)
}

func (s *serviceStorage) DoInsert(ctx context.Context, d *Data) (storagemodels.Key, error) {
	ds, err := s.dataStore()
	if err != nil {
		return nil, err
	}
	m := s.mapper
	record, err := m.Unpack(d)
	if err != nil {
		return nil, err
	}
	primaryKey := m.schema.PrimaryKey()
	if err := ds.Insert(ctx, m.options.Collection, record, primaryKey); err != nil {
		return nil, err
	}

	id := storagemodels.Key{}
	for _, name := range primaryKey {
		if v, ok := record[name]; ok && v != nil {
			continue
		}
		last, err := ds.LastID(ctx, m.options.Collection, name)
		if err != nil {
			return nil, fmt.Errorf("reading generated %q: %w", name, err)
		}
		if last == nil {
			return nil, fmt.Errorf("insert succeeded but no id was generated for %q", name)
		}
		id[name] = last
	}
	return id, nil
}

func (s *serviceStorage) DoUpdate(ctx context.Context, d *Data) error {
	ds, err := s.dataStore()
	if err != nil {
		return err
	}
	m := s.mapper
	changes, err := m.Unpack(d, DirtyOnly())
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}
	key, err := m.storeKey(d.IDValues())
	if err != nil {
		return err
	}
	return ds.Update(ctx, m.options.Collection, key, changes)
}

func (s *serviceStorage) DoDelete(ctx context.Context, d *Data) error {
	ds, err := s.dataStore()
	if err != nil {
		return err
	}
	key, err := s.mapper.storeKey(d.IDValues())
	if err != nil {
		return err
	}
	return ds.Delete(ctx, s.mapper.options.Collection, key)
}
