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

// Iterate streams every record of the mapper collection into fn as
// persisted entities. Iterated entities bypass the identity map. It stops
// at the first error returned by fn or the stream.
func (m *Mapper) Iterate(ctx context.Context, fn func(*Data) error, opts ...storagemodels.StreamOption) error {
	if m.env.services == nil {
		return fmt.Errorf("%w: %s: no service locator configured", errs.ErrConfig, m.class)
	}
	ds, err := m.env.services.DataStore(m.options.Service)
	if err != nil {
		return err
	}
	scanner, ok := ds.(datastore.Scanner)
	if !ok {
		return fmt.Errorf("%w: %s: service %q cannot scan", errs.ErrConfig, m.class, m.options.Service)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for result := range scanner.Scan(ctx, m.options.Collection, opts...) {
		if result.Error != nil {
			return wrapStorage(m.class, "iterate", result.Error)
		}
		d, err := m.Pack(result.Record, nil)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return ctx.Err()
}
