/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package processor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/suparena/entitymapper/datamapper"
	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/valuetype"
)

type file struct {
	Classes []classDescriptor `yaml:"classes"`
}

type classDescriptor struct {
	Class      string           `yaml:"class"`
	Parent     string           `yaml:"parent"`
	Service    string           `yaml:"service"`
	Collection string           `yaml:"collection"`
	Readonly   *bool            `yaml:"readonly"`
	Strict     *bool            `yaml:"strict"`
	Cache      *cacheDescriptor `yaml:"cache"`
	Attributes attributeList    `yaml:"attributes"`
}

type cacheDescriptor struct {
	Service string `yaml:"service"`
	Key     string `yaml:"key"`
	Prefix  string `yaml:"prefix"`
	// TTL is in seconds.
	TTL    int               `yaml:"ttl"`
	Policy *policyDescriptor `yaml:"policy"`
}

type policyDescriptor struct {
	Insert   bool           `yaml:"insert"`
	Update   bool           `yaml:"update"`
	NotFound notFoundPolicy `yaml:"not_found"`
}

// notFoundPolicy accepts a bool or a tombstone TTL in seconds.
type notFoundPolicy struct {
	enabled bool
	ttl     time.Duration
}

func (p *notFoundPolicy) UnmarshalYAML(node *yaml.Node) error {
	var enabled bool
	if err := node.Decode(&enabled); err == nil {
		p.enabled = enabled
		return nil
	}
	var seconds int
	if err := node.Decode(&seconds); err != nil {
		return fmt.Errorf("line %d: not_found must be a bool or a ttl in seconds", node.Line)
	}
	if seconds < 0 {
		return fmt.Errorf("line %d: not_found ttl must not be negative", node.Line)
	}
	p.enabled = seconds > 0
	p.ttl = time.Duration(seconds) * time.Second
	return nil
}

// attributeList decodes a mapping of attributes in document order.
type attributeList []datamapper.Field

func (l *attributeList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping", node.Line)
	}
	fields := make(attributeList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		attr, err := decodeAttribute(node.Content[i+1])
		if err != nil {
			return fmt.Errorf("attribute %q: %w", name, err)
		}
		fields = append(fields, datamapper.Field{Name: name, Attribute: attr})
	}
	*l = fields
	return nil
}

// decodeAttribute decodes one attribute body, rejecting unknown keys.
// node.Decode does not honor the decoder's KnownFields setting.
func decodeAttribute(node *yaml.Node) (valuetype.Attribute, error) {
	var attr valuetype.Attribute
	out, err := yaml.Marshal(node)
	if err != nil {
		return attr, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(out))
	dec.KnownFields(true)
	if err := dec.Decode(&attr); err != nil && !errors.Is(err, io.EOF) {
		return attr, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return attr, nil
}

func (c classDescriptor) definition() (datamapper.Definition, error) {
	if c.Class == "" {
		return datamapper.Definition{}, errors.New("class name is required")
	}

	def := datamapper.Definition{
		Class:  c.Class,
		Parent: c.Parent,
		Options: datamapper.Options{
			Service:    c.Service,
			Collection: c.Collection,
			Readonly:   c.Readonly,
			Strict:     c.Strict,
		},
		Fields: c.Attributes,
	}

	if cache := c.Cache; cache != nil {
		if cache.TTL < 0 {
			return datamapper.Definition{}, fmt.Errorf("class %s: cache ttl must not be negative", c.Class)
		}
		def.Options.CacheService = cache.Service
		def.Options.CacheKey = cache.Key
		def.Options.CacheKeyPrefix = cache.Prefix
		def.Options.CacheTTL = time.Duration(cache.TTL) * time.Second
		if p := cache.Policy; p != nil {
			def.Options.CachePolicy = &datamapper.CachePolicy{
				Insert:      p.Insert,
				Update:      p.Update,
				NotFound:    p.NotFound.enabled,
				NotFoundTTL: p.NotFound.ttl,
			}
		}
	}
	return def, nil
}

// Parse decodes descriptors from r. A stream may hold several YAML
// documents.
func Parse(r io.Reader) ([]datamapper.Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var defs []datamapper.Definition
	for {
		var f file
		err := dec.Decode(&f)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parsing descriptors: %v", errs.ErrConfig, err)
		}
		for _, c := range f.Classes {
			def, err := c.definition()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrConfig, err)
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// LoadFile reads the descriptors of one file.
func LoadFile(path string) ([]datamapper.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor file: %w", err)
	}
	defs, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// LoadFiles reads the descriptors of every file, in order.
func LoadFiles(paths ...string) ([]datamapper.Definition, error) {
	var defs []datamapper.Definition
	for _, path := range paths {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

// Register loads every file and registers its classes with env.
func Register(env *datamapper.Environment, paths ...string) error {
	defs, err := LoadFiles(paths...)
	if err != nil {
		return err
	}
	return env.Register(defs...)
}
