/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/suparena/entitymapper/datamapper"
	"github.com/suparena/entitymapper/storagemodels"
)

// NotFoundMarker is the single field of a tombstone record.
const NotFoundMarker = "__IS_NOT_FOUND__"

// Store is a side cache holding encoded records under string keys.
type Store interface {
	// Fetch returns the value stored under key. ok is false on a miss.
	Fetch(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Store writes value with the given time to live. A zero ttl means no
	// expiry.
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Decorator layers a side cache onto a mapper: finds are served from the
// cache, writes refresh or invalidate it according to the mapper cache
// policy. Cache failures are logged and never fail the storage operation.
type Decorator struct {
	mapper *datamapper.Mapper
	store  Store
	next   datamapper.Storage
	logger *slog.Logger
}

// Option configures a Decorator.
type Option func(*Decorator)

// WithLogger sets the logger used for cache failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decorator) {
		d.logger = logger
	}
}

// Attach wraps the storage of m and registers the cache hooks.
func Attach(m *datamapper.Mapper, store Store, opts ...Option) *Decorator {
	d := &Decorator{
		mapper: m,
		store:  store,
		logger: m.Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}

	m.WrapStorage(func(next datamapper.Storage) datamapper.Storage {
		d.next = next
		return d
	})
	m.After(datamapper.EventInsert, d.afterInsert).
		After(datamapper.EventUpdate, d.afterUpdate).
		After(datamapper.EventDelete, d.afterDelete).
		Before(datamapper.EventRefresh, d.beforeRefresh)
	return d
}

var classSeparators = strings.NewReplacer(`\`, ":", "/", ":", ".", ":")

// Key returns the cache key for id:
// "[prefix:]entity:<class>@<k1>:<v1>:<k2>:<v2>", lower-cased, with key
// fields sorted.
func (d *Decorator) Key(id storagemodels.Key) string {
	opts := d.mapper.Options()

	key := opts.CacheKey
	if key == "" {
		key = "entity:" + classSeparators.Replace(strings.Trim(d.mapper.Class(), `\/.`))
	}
	key += "@"
	if opts.CacheKeyPrefix != "" {
		key = opts.CacheKeyPrefix + ":" + key
	}
	return strings.ToLower(key + id.Join(":"))
}

func (d *Decorator) DoFind(ctx context.Context, id storagemodels.Key) (storagemodels.Record, error) {
	key := d.Key(id)

	if record, ok := d.fetch(ctx, key); ok {
		if _, tombstone := record[NotFoundMarker]; tombstone {
			return nil, nil
		}
		return record, nil
	}

	record, err := d.next.DoFind(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := d.mapper.Options()
	if record != nil {
		d.save(ctx, key, record.WithoutNulls(), opts.TTL())
	} else if policy := opts.Policy(); policy.NotFound {
		ttl := policy.NotFoundTTL
		if ttl <= 0 {
			ttl = opts.TTL()
		}
		d.save(ctx, key, storagemodels.Record{NotFoundMarker: 1}, ttl)
	}
	return record, nil
}

func (d *Decorator) DoInsert(ctx context.Context, data *datamapper.Data) (storagemodels.Key, error) {
	return d.next.DoInsert(ctx, data)
}

func (d *Decorator) DoUpdate(ctx context.Context, data *datamapper.Data) error {
	return d.next.DoUpdate(ctx, data)
}

func (d *Decorator) DoDelete(ctx context.Context, data *datamapper.Data) error {
	return d.next.DoDelete(ctx, data)
}

func (d *Decorator) afterInsert(ctx context.Context, data *datamapper.Data) error {
	policy := d.mapper.Options().Policy()
	if policy.Insert {
		d.saveData(ctx, data)
	} else if policy.NotFound {
		d.delete(ctx, d.Key(data.IDValues()))
	}
	return nil
}

func (d *Decorator) afterUpdate(ctx context.Context, data *datamapper.Data) error {
	if d.mapper.Options().Policy().Update {
		d.saveData(ctx, data)
	} else {
		d.delete(ctx, d.Key(data.IDValues()))
	}
	return nil
}

func (d *Decorator) afterDelete(ctx context.Context, data *datamapper.Data) error {
	d.delete(ctx, d.Key(data.IDValues()))
	return nil
}

func (d *Decorator) beforeRefresh(ctx context.Context, data *datamapper.Data) error {
	d.delete(ctx, d.Key(data.IDValues()))
	return nil
}

func (d *Decorator) saveData(ctx context.Context, data *datamapper.Data) {
	key := d.Key(data.IDValues())
	record, err := d.mapper.Unpack(data)
	if err != nil {
		d.logger.Warn("cache: unpacking record failed", "key", key, "error", err)
		d.delete(ctx, key)
		return
	}
	d.save(ctx, key, record.WithoutNulls(), d.mapper.Options().TTL())
}

func (d *Decorator) fetch(ctx context.Context, key string) (storagemodels.Record, bool) {
	raw, ok, err := d.store.Fetch(ctx, key)
	if err != nil {
		d.logger.Warn("cache: fetch failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	record, err := Decode(raw)
	if err != nil {
		d.logger.Warn("cache: dropping undecodable entry", "key", key, "error", err)
		d.delete(ctx, key)
		return nil, false
	}
	return record, true
}

func (d *Decorator) save(ctx context.Context, key string, record storagemodels.Record, ttl time.Duration) {
	raw, err := Encode(record)
	if err != nil {
		d.logger.Warn("cache: encoding record failed", "key", key, "error", err)
		return
	}
	if err := d.store.Store(ctx, key, raw, ttl); err != nil {
		d.logger.Warn("cache: store failed", "key", key, "error", err)
	}
}

func (d *Decorator) delete(ctx context.Context, key string) {
	if err := d.store.Delete(ctx, key); err != nil {
		d.logger.Warn("cache: delete failed", "key", key, "error", err)
	}
}

// Encode serializes a record for a side cache.
func Encode(record storagemodels.Record) ([]byte, error) {
	return json.Marshal(record)
}

// Decode parses a cached record. Numbers are kept as json.Number so the
// field codecs restore them without loss.
func Decode(raw []byte) (storagemodels.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var record storagemodels.Record
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decoding cached record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("decoding cached record: not an object")
	}
	return record, nil
}
