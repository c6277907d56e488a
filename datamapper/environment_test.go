/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/suparena/entitymapper/datamapper"
	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/valuetype"
)

func fooDefinition() datamapper.Definition {
	return datamapper.Definition{
		Class: "tests.foo",
		Options: datamapper.Options{
			Service:     "foo.service",
			Collection:  "foo.collection",
			CacheTTL:    time.Minute,
			CachePolicy: &datamapper.CachePolicy{NotFound: true},
		},
		Fields: []datamapper.Field{
			autoID(),
			field("foo", valuetype.Attribute{Type: "string"}),
		},
	}
}

func TestDefinitionInheritance(t *testing.T) {
	env := datamapper.NewEnvironment()
	bar := datamapper.Definition{
		Class:   "tests.bar",
		Parent:  "Tests.Foo",
		Options: datamapper.Options{Service: "bar.service", Collection: "bar.collection"},
		Fields: []datamapper.Field{
			field("bar", valuetype.Attribute{Type: "string"}),
			field("foo", valuetype.Attribute{Type: "integer"}),
		},
	}
	if err := env.Register(fooDefinition(), bar); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	foo, err := env.Mapper("tests.foo")
	if err != nil {
		t.Fatalf("Mapper(foo) failed: %v", err)
	}
	if opts := foo.Options(); opts.Service != "foo.service" || opts.Collection != "foo.collection" {
		t.Errorf("foo options = %+v", opts)
	}
	if got := foo.Schema().Names(); !reflect.DeepEqual(got, []string{"id", "foo"}) {
		t.Errorf("foo fields = %v", got)
	}

	m, err := env.Mapper("TESTS.BAR")
	if err != nil {
		t.Fatalf("Mapper(bar) failed: %v", err)
	}
	opts := m.Options()
	if opts.Service != "bar.service" || opts.Collection != "bar.collection" {
		t.Errorf("bar options = %+v", opts)
	}
	if opts.TTL() != time.Minute || !opts.Policy().NotFound {
		t.Errorf("bar should inherit cache options, got %+v", opts)
	}
	if got := m.Schema().Names(); !reflect.DeepEqual(got, []string{"id", "foo", "bar"}) {
		t.Errorf("bar fields = %v", got)
	}
	if attr, _ := m.Schema().Attribute("foo"); attr.Type != valuetype.TypeInteger {
		t.Errorf("child field should override the parent, got type %q", attr.Type)
	}
	if !reflect.DeepEqual(m.PrimaryKey(), []string{"id"}) {
		t.Errorf("PrimaryKey() = %v", m.PrimaryKey())
	}
}

func TestEnvironmentErrors(t *testing.T) {
	tests := []struct {
		name  string
		defs  []datamapper.Definition
		class string
	}{
		{
			name:  "UnknownClass",
			class: "tests.missing",
		},
		{
			name: "MissingPrimaryKey",
			defs: []datamapper.Definition{{
				Class:  "tests.nopk",
				Fields: []datamapper.Field{field("foo", valuetype.Attribute{Type: "string"})},
			}},
			class: "tests.nopk",
		},
		{
			name: "DeprecatedPrimaryKey",
			defs: []datamapper.Definition{{
				Class:  "tests.deprecated",
				Fields: []datamapper.Field{field("id", valuetype.Attribute{Type: "string", PrimaryKey: true, Deprecated: true})},
			}},
			class: "tests.deprecated",
		},
		{
			name: "BadPattern",
			defs: []datamapper.Definition{{
				Class: "tests.pattern",
				Fields: []datamapper.Field{
					autoID(),
					field("foo", valuetype.Attribute{Type: "string", Regexp: "/(/"}),
				},
			}},
			class: "tests.pattern",
		},
		{
			name:  "UnknownParent",
			defs:  []datamapper.Definition{{Class: "tests.child", Parent: "tests.nobody", Fields: []datamapper.Field{autoID()}}},
			class: "tests.child",
		},
		{
			name: "Cycle",
			defs: []datamapper.Definition{
				{Class: "tests.a", Parent: "tests.b", Fields: []datamapper.Field{autoID()}},
				{Class: "tests.b", Parent: "tests.a"},
			},
			class: "tests.a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := datamapper.NewEnvironment()
			if err := env.Register(tt.defs...); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
			if _, err := env.Mapper(tt.class); !errs.IsConfig(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestEnvironmentRegisterDuplicate(t *testing.T) {
	env := datamapper.NewEnvironment()
	if err := env.Register(fooDefinition()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	dup := fooDefinition()
	dup.Class = `\Tests.Foo`
	if err := env.Register(dup); !errs.IsConfig(err) {
		t.Errorf("expected duplicate class error, got %v", err)
	}
	if err := env.Register(datamapper.Definition{}); !errs.IsConfig(err) {
		t.Errorf("expected missing class error, got %v", err)
	}
	if got := env.Classes(); !reflect.DeepEqual(got, []string{"tests.foo"}) {
		t.Errorf("Classes() = %v", got)
	}
}

func TestEnvironmentMemoizesMappers(t *testing.T) {
	setups := 0
	env := datamapper.NewEnvironment(datamapper.WithMapperSetup(func(m *datamapper.Mapper) error {
		setups++
		return nil
	}))
	_ = env.Register(fooDefinition())

	a, _ := env.Mapper("tests.foo")
	b, _ := env.Mapper("Tests.Foo")
	if a != b {
		t.Error("one mapper per class expected")
	}
	if setups != 1 {
		t.Errorf("setup should run once, ran %d times", setups)
	}
}

func TestEnvironmentSetupError(t *testing.T) {
	failed := errors.New("setup failed")
	env := datamapper.NewEnvironment(datamapper.WithMapperSetup(func(m *datamapper.Mapper) error {
		return failed
	}))
	_ = env.Register(fooDefinition())

	if _, err := env.Mapper("tests.foo"); !errors.Is(err, failed) {
		t.Fatalf("expected setup error, got %v", err)
	}
}

func TestEnvironmentSetupRequestsMapper(t *testing.T) {
	var env *datamapper.Environment
	env = datamapper.NewEnvironment(datamapper.WithMapperSetup(func(m *datamapper.Mapper) error {
		if m.Class() != "tests.foo" {
			return nil
		}
		_, err := env.Mapper("tests.bar")
		return err
	}))
	bar := datamapper.Definition{
		Class:   "tests.bar",
		Parent:  "tests.foo",
		Options: datamapper.Options{Service: "bar.service", Collection: "bar.collection"},
	}
	if err := env.Register(fooDefinition(), bar); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := env.Mapper("tests.foo")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Mapper(foo) failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Mapper(foo) did not return while its setup requested another mapper")
	}

	first := env.MustMapper("tests.bar")
	if again := env.MustMapper("tests.bar"); again != first {
		t.Error("mapper built during setup should be memoized")
	}
}

func TestAttributeNormalization(t *testing.T) {
	env := datamapper.NewEnvironment()
	_ = env.Register(datamapper.Definition{
		Class: "tests.norm",
		Fields: []datamapper.Field{
			field("id", valuetype.Attribute{Type: "uuid", PrimaryKey: true, AllowNull: true}),
			field("secret", valuetype.Attribute{Type: "text", Protected: true}),
			field("note", valuetype.Attribute{Type: "string", AllowNull: true, Default: "x"}),
		},
	})
	m := env.MustMapper("tests.norm")

	id, _ := m.Schema().Attribute("id")
	if id.AllowNull || !id.RefuseUpdate || !id.IsStrict() || !id.AutoGenerate {
		t.Errorf("primary key attribute not normalized: %+v", id)
	}
	secret, _ := m.Schema().Attribute("secret")
	if !secret.IsStrict() || secret.Type != valuetype.TypeString {
		t.Errorf("protected attribute not normalized: %+v", secret)
	}
	note, _ := m.Schema().Attribute("note")
	if note.Default != nil || note.IsStrict() {
		t.Errorf("nullable attribute not normalized: %+v", note)
	}
}
