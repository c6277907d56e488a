/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/suparena/entitymapper/datamapper"
	"github.com/suparena/entitymapper/processor"
)

const descriptors = `
classes:
  - class: app.user
    service: main
    collection: users
    attributes:
      id: {type: integer, primary_key: true, auto_generate: true}
      email: {type: string, pattern: '/@/'}
  - class: app.broken
    attributes:
      name: {type: string}
`

func TestCheck(t *testing.T) {
	defs, err := processor.Parse(strings.NewReader(descriptors))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	env := datamapper.NewEnvironment()
	if err := env.Register(defs...); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	var buf bytes.Buffer
	err = check(&buf, env)
	if err == nil || !strings.Contains(err.Error(), "app.broken") {
		t.Errorf("expected app.broken to fail without a primary key, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{"class: app.user", "primary_key:", "- id", "name: email", "regexp: /@/"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "app.broken") {
		t.Errorf("failed classes should not be printed:\n%s", out)
	}
}
