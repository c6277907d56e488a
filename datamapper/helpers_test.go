/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper_test

import (
	"testing"

	"github.com/suparena/entitymapper/datamapper"
	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/datastore/mock"
	"github.com/suparena/entitymapper/valuetype"
)

const testClass = "tests.data"

type fixture struct {
	env    *datamapper.Environment
	store  *mock.DataStore
	mapper *datamapper.Mapper
}

// newFixture builds an environment backed by a mock store with a single
// class using fields.
func newFixture(t *testing.T, fields []datamapper.Field, opts ...func(*datamapper.Definition)) *fixture {
	t.Helper()

	store := mock.New()
	services := datastore.NewContainer()
	if err := services.Register("mock", store); err != nil {
		t.Fatalf("Register service failed: %v", err)
	}

	env := datamapper.NewEnvironment(datamapper.WithServices(services))
	def := datamapper.Definition{
		Class:   testClass,
		Options: datamapper.Options{Service: "mock", Collection: "data"},
		Fields:  fields,
	}
	for _, opt := range opts {
		opt(&def)
	}
	if err := env.Register(def); err != nil {
		t.Fatalf("Register definition failed: %v", err)
	}

	m, err := env.Mapper(testClass)
	if err != nil {
		t.Fatalf("Mapper failed: %v", err)
	}
	return &fixture{env: env, store: store, mapper: m}
}

func (f *fixture) newData(t *testing.T, values map[string]any, opts ...datamapper.NewOption) *datamapper.Data {
	t.Helper()
	d, err := f.mapper.New(values, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return d
}

func field(name string, attr valuetype.Attribute) datamapper.Field {
	return datamapper.Field{Name: name, Attribute: attr}
}

func autoID() datamapper.Field {
	return field("id", valuetype.Attribute{Type: "integer", PrimaryKey: true, AutoGenerate: true})
}

func mustGet(t *testing.T, d *datamapper.Data, key string) any {
	t.Helper()
	v, err := d.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return v
}

func mustSet(t *testing.T, d *datamapper.Data, key string, value any, opts ...datamapper.SetOption) {
	t.Helper()
	if err := d.Set(key, value, opts...); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}
