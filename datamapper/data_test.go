/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/suparena/entitymapper/datamapper"
	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
	"github.com/suparena/entitymapper/validator"
	"github.com/suparena/entitymapper/valuetype"
)

func TestNew(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string", Default: "foo"}),
		field("bar", valuetype.Attribute{Type: "string", Default: "bar", AllowNull: true}),
	})

	d := f.newData(t, nil)
	if !d.IsFresh() || !d.IsDirty() {
		t.Fatalf("new data should be fresh and dirty, got fresh=%v dirty=%v", d.IsFresh(), d.IsDirty())
	}
	if got := mustGet(t, d, "foo"); got != "foo" {
		t.Errorf("foo = %v, want default", got)
	}
	if got := mustGet(t, d, "bar"); got != nil {
		t.Errorf("nullable bar should have no default, got %v", got)
	}

	d = f.newData(t, map[string]any{"bar": "bar", "unknown": 1})
	if got := mustGet(t, d, "bar"); got != "bar" {
		t.Errorf("bar = %v", got)
	}

	d = f.newData(t, nil, datamapper.Fresh(false))
	if d.IsFresh() || d.IsDirty() {
		t.Fatalf("persisted data should be clean, got fresh=%v dirty=%v", d.IsFresh(), d.IsDirty())
	}
	if got := mustGet(t, d, "foo"); got != "foo" {
		t.Errorf("unset foo should read its default, got %v", got)
	}
}

func TestNewNormalizeError(t *testing.T) {
	f := newFixture(t, []datamapper.Field{autoID(), field("n", valuetype.Attribute{Type: "integer"})})

	_, err := f.mapper.New(map[string]any{"n": "abc"})
	if !errs.IsUnexpectedValue(err) {
		t.Fatalf("expected unexpected value error, got %v", err)
	}
	if !errs.IsValidationError(err) {
		t.Errorf("cause should be reachable through the error chain, got %v", err)
	}
}

func TestClone(t *testing.T) {
	t.Run("GeneratedInteger", func(t *testing.T) {
		f := newFixture(t, []datamapper.Field{autoID(), field("name", valuetype.Attribute{Type: "string"})})

		d, err := f.mapper.Pack(storagemodels.Record{"id": 1, "name": "foo"}, nil)
		if err != nil {
			t.Fatalf("Pack failed: %v", err)
		}
		if d.IsFresh() {
			t.Fatal("packed data should not be fresh")
		}

		c := d.Clone()
		if !c.IsFresh() {
			t.Error("clone should be fresh")
		}
		if c.ID() != nil {
			t.Errorf("clone should drop the id, got %v", c.ID())
		}
		if !c.IsDirty("name") || mustGet(t, c, "name") != "foo" {
			t.Error("clone should carry dirty copies of the other fields")
		}
	})

	t.Run("UUID", func(t *testing.T) {
		f := newFixture(t, []datamapper.Field{field("id", valuetype.Attribute{Type: "uuid", PrimaryKey: true})})

		d, err := f.mapper.Pack(storagemodels.Record{"id": "5c376c3a-53bf-4c26-8974-2ac9dc0f4b29"}, nil)
		if err != nil {
			t.Fatalf("Pack failed: %v", err)
		}
		c := d.Clone()
		if c.ID() == d.ID() {
			t.Error("clone should get a new uuid")
		}
		if s, _ := c.ID().(string); !regexp.MustCompile(`^[0-9a-f\-]{36}$`).MatchString(s) {
			t.Errorf("clone id %v is not a uuid", c.ID())
		}
	})

	t.Run("DeepCopy", func(t *testing.T) {
		f := newFixture(t, []datamapper.Field{autoID(), field("doc", valuetype.Attribute{Type: "json"})})

		d := f.newData(t, map[string]any{"doc": map[string]any{"a": []any{1}}})
		c := d.Clone()
		if err := c.PushIn("doc", []string{"a"}, 2); err != nil {
			t.Fatalf("PushIn failed: %v", err)
		}
		if v, _, _ := d.GetIn("doc", []string{"a"}); len(v.([]any)) != 1 {
			t.Errorf("clone mutation leaked into the original: %v", v)
		}
	})
}

func TestSetStrict(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string", Strict: datamapper.Bool(true)}),
	})
	d := f.newData(t, nil)

	if err := d.Merge(map[string]any{"foo": "foo"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if d.IsDirty("foo") {
		t.Error("Merge should skip strict fields")
	}

	mustSet(t, d, "foo", "foo", datamapper.NonStrict())
	if d.IsDirty("foo") {
		t.Error("non-strict Set should skip strict fields")
	}

	mustSet(t, d, "foo", "foo")
	if !d.IsDirty("foo") {
		t.Error("strict Set should assign strict fields")
	}
}

func TestStrictOptionInheritance(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string"}),
		field("bar", valuetype.Attribute{Type: "string", Strict: datamapper.Bool(false)}),
	}, func(def *datamapper.Definition) {
		def.Options.Strict = datamapper.Bool(true)
	})

	d := f.newData(t, nil)
	_ = d.Merge(map[string]any{"foo": "x", "bar": "y"})
	if d.IsDirty("foo") {
		t.Error("foo should inherit the mapper strict option")
	}
	if !d.IsDirty("bar") {
		t.Error("bar sets strict explicitly and should accept merges")
	}
}

func TestSetRefuseUpdate(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string", RefuseUpdate: true}),
	})

	d := f.newData(t, nil)
	mustSet(t, d, "foo", "foo")
	if mustGet(t, d, "foo") != "foo" {
		t.Error("fresh data should accept refuse-update fields")
	}

	d = f.newData(t, map[string]any{"foo": "foo"}, datamapper.Fresh(false))
	mustSet(t, d, "foo", "bar", datamapper.Force())
	if mustGet(t, d, "foo") != "bar" {
		t.Error("forced Set should update")
	}

	err := d.Set("foo", "baz")
	if !errs.IsRefuseUpdate(err) {
		t.Fatalf("expected refuse update error, got %v", err)
	}
	if !errs.IsProperty(err) {
		t.Error("refuse update should be a property error")
	}
}

func TestSetSame(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string", AllowNull: true}),
		field("bar", valuetype.Attribute{Type: "string"}),
		field("doc", valuetype.Attribute{Type: "json"}),
	})

	d := f.newData(t, map[string]any{"bar": "bar", "doc": map[string]any{}}, datamapper.Fresh(false))
	if d.IsDirty() {
		t.Fatal("persisted data should start clean")
	}

	tests := []struct {
		key   string
		value any
	}{
		{"foo", nil},
		{"bar", "bar"},
		{"doc", ""},
		{"doc", []any{}},
	}
	for _, tt := range tests {
		mustSet(t, d, tt.key, tt.value)
		if d.IsDirty(tt.key) {
			t.Errorf("Set(%q, %#v) should not dirty the field", tt.key, tt.value)
		}
	}
}

func TestUndefinedProperty(t *testing.T) {
	f := newFixture(t, []datamapper.Field{autoID()})
	d := f.newData(t, nil)

	if err := d.Set("bar", "bar", datamapper.NonStrict()); err != nil {
		t.Errorf("non-strict Set should ignore unknown fields, got %v", err)
	}
	if err := d.Merge(map[string]any{"bar": "bar"}); err != nil {
		t.Errorf("Merge should ignore unknown fields, got %v", err)
	}
	if err := d.Set("bar", "bar"); !errs.IsUndefinedProperty(err) {
		t.Errorf("expected undefined property on Set, got %v", err)
	}
	if _, err := d.Get("foo"); !errs.IsUndefinedProperty(err) {
		t.Errorf("expected undefined property on Get, got %v", err)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("time", valuetype.Attribute{Type: "datetime", Default: "now"}),
		field("doc", valuetype.Attribute{Type: "json"}),
	})
	d := f.newData(t, map[string]any{"doc": map[string]any{"a": 1}})

	if _, ok := mustGet(t, d, "time").(time.Time); !ok {
		t.Fatalf("time should default to a time.Time, got %T", mustGet(t, d, "time"))
	}

	doc := mustGet(t, d, "doc").(map[string]any)
	doc["a"] = 2
	if mustGet(t, d, "doc").(map[string]any)["a"] != 1 {
		t.Error("mutating a returned value should not change the entity")
	}
}

func TestPick(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string", Protected: true}),
		field("bar", valuetype.Attribute{Type: "string"}),
	})
	d := f.newData(t, map[string]any{"foo": "foo", "bar": "bar"}, datamapper.Fresh(false))

	values := d.Pick()
	if !reflect.DeepEqual(values, map[string]any{"bar": "bar"}) {
		t.Errorf("Pick() = %v", values)
	}

	values = d.Pick("foo", "bar", "baz")
	if !reflect.DeepEqual(values, map[string]any{"foo": "foo", "bar": "bar"}) {
		t.Errorf("Pick(foo, bar, baz) = %v", values)
	}
}

func TestToJSON(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("at", valuetype.Attribute{Type: "datetime", Format: valuetype.FormatUnix}),
		field("secret", valuetype.Attribute{Type: "string", Protected: true}),
	})
	at := time.Unix(1700000000, 0)
	d := f.newData(t, map[string]any{"id": 7, "at": at, "secret": "x"}, datamapper.Fresh(false))

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := got["secret"]; ok {
		t.Error("protected fields should not be serialized")
	}
	if got["id"] != float64(7) || got["at"] == nil {
		t.Errorf("unexpected json %s", b)
	}
}

func TestID(t *testing.T) {
	f := newFixture(t, []datamapper.Field{field("foo", valuetype.Attribute{Type: "string", PrimaryKey: true})})
	d := f.newData(t, map[string]any{"foo": "foo"})
	if d.ID() != "foo" {
		t.Errorf("ID() = %v", d.ID())
	}
	if !reflect.DeepEqual(d.IDValues(), storagemodels.Key{"foo": "foo"}) {
		t.Errorf("IDValues() = %v", d.IDValues())
	}

	f = newFixture(t, []datamapper.Field{
		field("foo", valuetype.Attribute{Type: "string", PrimaryKey: true}),
		field("bar", valuetype.Attribute{Type: "string", PrimaryKey: true}),
	})
	d = f.newData(t, map[string]any{"foo": "foo", "bar": "bar"})
	if !reflect.DeepEqual(d.ID(), map[string]any{"foo": "foo", "bar": "bar"}) {
		t.Errorf("composite ID() = %v", d.ID())
	}
}

func TestDeprecatedAttribute(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		field("id", valuetype.Attribute{Type: "string", PrimaryKey: true}),
		field("bar", valuetype.Attribute{Type: "string", Deprecated: true}),
	})

	schema := f.mapper.Schema()
	if schema.HasAttribute("bar") {
		t.Error("deprecated attributes should be hidden")
	}
	if !reflect.DeepEqual(schema.Names(), []string{"id"}) {
		t.Errorf("Names() = %v", schema.Names())
	}

	d := f.newData(t, map[string]any{"bar": "x"})
	if _, err := d.Get("bar"); !errs.IsDeprecatedProperty(err) {
		t.Errorf("expected deprecated property on Get, got %v", err)
	}
	if err := d.Set("bar", "x"); !errs.IsDeprecatedProperty(err) {
		t.Errorf("expected deprecated property on Set, got %v", err)
	}
}

func TestSetIn(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		field("id", valuetype.Attribute{Type: "integer", PrimaryKey: true}),
		field("doc", valuetype.Attribute{Type: "json"}),
		field("msg", valuetype.Attribute{Type: "string"}),
	})
	d := f.newData(t, map[string]any{"id": 1}, datamapper.Fresh(false))

	if err := d.SetIn("doc", []string{"foo"}, 1); err != nil {
		t.Fatalf("SetIn failed: %v", err)
	}
	if !reflect.DeepEqual(mustGet(t, d, "doc"), map[string]any{"foo": 1}) || !d.IsDirty("doc") {
		t.Fatalf("doc = %v, dirty=%v", mustGet(t, d, "doc"), d.IsDirty("doc"))
	}

	_ = d.SetIn("doc", []string{"bar"}, 2)
	if !reflect.DeepEqual(mustGet(t, d, "doc"), map[string]any{"foo": 1, "bar": 2}) {
		t.Fatalf("doc = %v", mustGet(t, d, "doc"))
	}

	if err := d.SetIn("msg", []string{"foo"}, 1); !errs.IsUnexpectedValue(err) {
		t.Errorf("SetIn on a scalar field should fail, got %v", err)
	}

	t.Run("GetIn", func(t *testing.T) {
		tests := []struct {
			path   []string
			want   any
			wantOK bool
		}{
			{[]string{"foo"}, 1, true},
			{[]string{"bar"}, 2, true},
			{[]string{"foobar"}, nil, false},
			{[]string{"foo", "bar"}, nil, false},
		}
		for _, tt := range tests {
			got, ok, err := d.GetIn("doc", tt.path)
			if err != nil || ok != tt.wantOK || got != tt.want {
				t.Errorf("GetIn(%v) = %v, %v, %v", tt.path, got, ok, err)
			}
		}

		if _, ok, err := d.GetIn("msg", []string{"foo"}); ok || err != nil {
			t.Errorf("GetIn on a scalar should miss, got %v, %v", ok, err)
		}
	})
}

func TestPushIn(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		field("id", valuetype.Attribute{Type: "integer", PrimaryKey: true}),
		field("doc", valuetype.Attribute{Type: "json"}),
	})
	d := f.newData(t, nil)

	steps := []struct {
		apply func() error
		want  map[string]any
	}{
		{func() error { return d.PushIn("doc", []string{"a"}, 1) }, map[string]any{"a": []any{1}}},
		{func() error { return d.PushIn("doc", []string{"a"}, 2) }, map[string]any{"a": []any{1, 2}}},
		{func() error { return d.UnsetIn("doc", []string{"a"}) }, map[string]any{}},
		{func() error { return d.PushIn("doc", []string{"a", "b"}, 1) }, map[string]any{"a": map[string]any{"b": []any{1}}}},
		{func() error { return d.PushIn("doc", []string{"a", "b"}, 2) }, map[string]any{"a": map[string]any{"b": []any{1, 2}}}},
		{func() error { return d.UnsetIn("doc", []string{"a", "b", "0"}) }, map[string]any{"a": map[string]any{"b": []any{2}}}},
	}
	for i, step := range steps {
		if err := step.apply(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if got := mustGet(t, d, "doc"); !reflect.DeepEqual(got, step.want) {
			t.Fatalf("step %d: doc = %v, want %v", i, got, step.want)
		}
	}

	_ = d.SetIn("doc", []string{"s"}, "scalar")
	if err := d.PushIn("doc", []string{"s"}, 1); !errs.IsUnexpectedValue(err) {
		t.Errorf("pushing onto a scalar should fail, got %v", err)
	}
}

func TestValidateAllowNull(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string"}),
		field("bar", valuetype.Attribute{Type: "string", AllowNull: true}),
	})
	d := f.newData(t, nil)

	if err := d.Validate(); !errs.IsUnexpectedValue(err) {
		t.Fatalf("unset foo should fail validation, got %v", err)
	}
	for _, v := range []any{"", nil} {
		mustSet(t, d, "foo", v)
		if err := d.Validate(); !errs.IsUnexpectedValue(err) {
			t.Fatalf("foo=%#v should fail validation, got %v", v, err)
		}
	}

	mustSet(t, d, "foo", "foo")
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	f = newFixture(t, []datamapper.Field{autoID(), field("doc", valuetype.Attribute{Type: "json"})})
	if err := f.newData(t, nil).Validate(); !errs.IsUnexpectedValue(err) {
		t.Errorf("empty json document should fail, got %v", err)
	}
}

func TestValidatePersistedChecksDirtyOnly(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string"}),
		field("bar", valuetype.Attribute{Type: "string"}),
	})
	d := f.newData(t, map[string]any{"id": 1, "bar": "bar"}, datamapper.Fresh(false))

	if err := d.Validate(); err != nil {
		t.Fatalf("clean persisted data should validate, got %v", err)
	}
	mustSet(t, d, "bar", "")
	if err := d.Validate(); !errs.IsUnexpectedValue(err) {
		t.Errorf("dirty empty bar should fail, got %v", err)
	}
}

func TestValidateRegexp(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("foo", valuetype.Attribute{Type: "string", Regexp: "/^a.+z$/"}),
	})
	d := f.newData(t, map[string]any{"foo": "abc"})

	err := d.Validate()
	var perr *errs.PropertyError
	if !errors.As(err, &perr) || perr.Property != "foo" {
		t.Fatalf("expected property error on foo, got %v", err)
	}

	mustSet(t, d, "foo", "abz")
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateRegexpSkipsNonStrings(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("doc", valuetype.Attribute{Type: "json", AllowNull: true, Regexp: "/^a.+z$/"}),
	})

	tests := []struct {
		name  string
		value any
	}{
		{"Map", map[string]any{"a": "z"}},
		{"List", []any{"abz", 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := f.newData(t, nil)
			mustSet(t, d, "doc", tt.value)
			if err := d.Validate(); err != nil {
				t.Errorf("Validate() = %v, pattern should not apply to %T", err, tt.value)
			}
		})
	}

	// Strings decoded as JSON documents are containers too.
	d := f.newData(t, nil)
	mustSet(t, d, "doc", `{"a":"b"}`)
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestValidateComplexSchema(t *testing.T) {
	f := newFixture(t, []datamapper.Field{
		autoID(),
		field("doc", valuetype.Attribute{
			Type:      "json",
			AllowNull: true,
			Schema: validator.Schema{
				"a": {Type: "integer"},
				"b": {Type: "integer", Required: datamapper.Bool(false)},
				"c": {
					Type: "array",
					Keys: validator.Schema{
						"d": {Type: "string", EnumEq: []any{"foo", "bar"}},
						"e": {Type: "string", Regexp: "/^a.+z$/"},
					},
				},
			},
		}),
	})
	d := f.newData(t, nil)

	steps := []struct {
		path    []string
		value   any
		wantErr bool
	}{
		{nil, nil, false},
		{[]string{"b"}, 1, true},
		{[]string{"a"}, 1, true},
		{[]string{"c", "d"}, "foo", true},
		{[]string{"c", "e"}, "aaaaaaz", false},
		{[]string{"c", "d"}, "baz", true},
		{[]string{"c", "d"}, "bar", false},
	}
	for i, step := range steps {
		if step.path != nil {
			if err := d.SetIn("doc", step.path, step.value); err != nil {
				t.Fatalf("step %d: SetIn failed: %v", i, err)
			}
		}
		err := d.Validate()
		if step.wantErr {
			if !errs.IsUnexpectedValue(err) || !errs.IsValidationError(err) {
				t.Fatalf("step %d: expected schema violation, got %v", i, err)
			}
		} else if err != nil {
			t.Fatalf("step %d: Validate failed: %v", i, err)
		}
	}
}

func TestAllowTags(t *testing.T) {
	withTags := newFixture(t, []datamapper.Field{autoID(), field("foo", valuetype.Attribute{Type: "string", AllowTags: true})})
	d := withTags.newData(t, map[string]any{"foo": "<h1>test</h1>"})
	if err := d.Validate(); err != nil {
		t.Fatalf("tags should be allowed, got %v", err)
	}

	noTags := newFixture(t, []datamapper.Field{autoID(), field("foo", valuetype.Attribute{Type: "string"})})
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"<h1>test</h1>", true},
		{"a<b", true},
		{"1 < 2", false},
		{"plain", false},
	}
	for _, tt := range tests {
		d := noTags.newData(t, map[string]any{"foo": tt.value})
		err := d.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}

func TestFindOrCreate(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, []datamapper.Field{autoID()})
	d, err := f.mapper.FindOrCreate(ctx, 999)
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if !d.IsFresh() || d.ID() != int64(999) {
		t.Errorf("expected fresh data with id 999, got fresh=%v id=%v", d.IsFresh(), d.ID())
	}

	f = newFixture(t, []datamapper.Field{
		field("foo", valuetype.Attribute{Type: "uuid", PrimaryKey: true}),
		field("bar", valuetype.Attribute{Type: "uuid", PrimaryKey: true}),
	})
	d, err = f.mapper.FindOrCreate(ctx, map[string]any{
		"foo": "c8e94a82-0100-48a2-aaa1-a12adeb94300",
		"bar": "e864e07e-c9d1-44ae-aeaf-ca6610380d29",
	})
	if err != nil {
		t.Fatalf("FindOrCreate failed: %v", err)
	}
	if mustGet(t, d, "foo") != "c8e94a82-0100-48a2-aaa1-a12adeb94300" || mustGet(t, d, "bar") != "e864e07e-c9d1-44ae-aeaf-ca6610380d29" {
		t.Errorf("unexpected id %v", d.IDValues())
	}

	_, err = f.mapper.FindOrCreate(ctx, "9f8e2ba8-fbb2-49d5-9f39-83af4fb52bf9")
	var perr *errs.PropertyError
	if !errors.As(err, &perr) || perr.Reason != "illegal id value" {
		t.Errorf("expected illegal id error, got %v", err)
	}
}
