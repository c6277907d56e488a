/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore_test

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/datastore/mock"
	errs "github.com/suparena/entitymapper/errors"
)

type closingStore struct {
	*mock.DataStore
	closed bool
	err    error
}

func (c *closingStore) Close() error {
	c.closed = true
	return c.err
}

func TestContainer(t *testing.T) {
	c := datastore.NewContainer()
	ds := mock.New()

	if err := c.Register("main", ds); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := c.Register("main", ds); !errs.IsConfig(err) {
		t.Errorf("expected duplicate registration to fail, got %v", err)
	}

	got, err := c.DataStore("main")
	if err != nil || got != ds {
		t.Errorf("DataStore(main) = %v, %v", got, err)
	}
	if _, err := c.DataStore("missing"); !errs.IsConfig(err) {
		t.Errorf("expected missing service error, got %v", err)
	}

	_ = c.Register("aux", mock.New())
	if names := c.Names(); !reflect.DeepEqual(names, []string{"aux", "main"}) {
		t.Errorf("Names() = %v", names)
	}
}

func TestContainerClose(t *testing.T) {
	c := datastore.NewContainer()
	ok := &closingStore{DataStore: mock.New()}
	failing := &closingStore{DataStore: mock.New(), err: errors.New("boom")}
	_ = c.Register("ok", ok)
	_ = c.Register("failing", failing)
	_ = c.Register("plain", mock.New())

	if err := c.Close(); err == nil {
		t.Error("expected close error to surface")
	}
	if !ok.closed || !failing.closed {
		t.Error("every closer should be closed")
	}
}

func TestContainerConcurrentAccess(t *testing.T) {
	c := datastore.NewContainer()
	_ = c.Register("main", mock.New())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.DataStore("main"); err != nil {
				t.Errorf("DataStore failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
