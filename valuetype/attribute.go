/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

import (
	"regexp"

	"github.com/suparena/entitymapper/validator"
)

// Attribute is the definition of one entity field. The zero value carries
// the global defaults; Registry.NormalizeAttribute applies type defaults and
// the cross-field rules.
type Attribute struct {
	Type         string `yaml:"type" json:"type"`
	AllowNull    bool   `yaml:"allow_null" json:"allow_null"`
	AllowTags    bool   `yaml:"allow_tags" json:"allow_tags"`
	AutoGenerate bool   `yaml:"auto_generate" json:"auto_generate"`
	Default      any    `yaml:"default" json:"default"`
	Deprecated   bool   `yaml:"deprecated" json:"deprecated"`
	Regexp       string `yaml:"regexp" json:"regexp,omitempty"`
	// Pattern is an alias of Regexp, moved there during normalization.
	Pattern      string `yaml:"pattern" json:"-"`
	PrimaryKey   bool   `yaml:"primary_key" json:"primary_key"`
	Protected    bool   `yaml:"protected" json:"protected"`
	RefuseUpdate bool   `yaml:"refuse_update" json:"refuse_update"`
	// Strict is tri-state: nil means "inherit the mapper option".
	Strict *bool `yaml:"strict" json:"strict"`

	// uuid
	Upper bool `yaml:"upper" json:"upper,omitempty"`
	// datetime: a Go layout, "c" for RFC 3339 or "U" for unix seconds
	Format string `yaml:"format" json:"format,omitempty"`
	// complex, json, pg_array, pg_hstore
	Schema     validator.Schema `yaml:"schema" json:"schema,omitempty"`
	TrimValues *bool            `yaml:"trim_values" json:"trim_values,omitempty"`

	re *regexp.Regexp
}

// IsStrict reports whether the field only accepts strict assignments.
func (a Attribute) IsStrict() bool {
	return a.Strict != nil && *a.Strict
}

// TrimsValues reports whether structured values are trimmed before storing.
func (a Attribute) TrimsValues() bool {
	return a.TrimValues == nil || *a.TrimValues
}

// MatchString tests s against the compiled Regexp. Attributes without a
// pattern match everything.
func (a Attribute) MatchString(s string) bool {
	if a.re == nil {
		return true
	}
	return a.re.MatchString(s)
}

// HasPattern reports whether the attribute carries a compiled pattern.
func (a Attribute) HasPattern() bool {
	return a.re != nil
}

// WithStrict returns a copy of a with Strict set.
func (a Attribute) WithStrict(strict bool) Attribute {
	a.Strict = &strict
	return a
}
