/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/suparena/entitymapper/datastore"
	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/registry"
	"github.com/suparena/entitymapper/valuetype"
)

// ServiceLocator resolves named storage services. datastore.Container
// implements it.
type ServiceLocator interface {
	DataStore(name string) (datastore.DataStore, error)
}

// SetupFunc runs for every mapper built by an Environment, before the
// mapper is handed out. Concurrent first requests for a class may each build
// and set up a mapper; only one of them is kept.
type SetupFunc func(m *Mapper) error

// Environment owns the process-lifetime state shared by mappers: the type
// registry, the identity map, registered definitions and memoized mappers.
type Environment struct {
	mu          sync.Mutex
	types       *valuetype.Registry
	identities  *registry.IdentityMap
	services    ServiceLocator
	logger      *slog.Logger
	setups      []SetupFunc
	definitions map[string]Definition
	mappers     map[string]*Mapper
}

// EnvironmentOption configures an Environment.
type EnvironmentOption func(*Environment)

// WithTypes replaces the default type registry.
func WithTypes(types *valuetype.Registry) EnvironmentOption {
	return func(e *Environment) {
		e.types = types
	}
}

// WithIdentityMap replaces the default identity map.
func WithIdentityMap(m *registry.IdentityMap) EnvironmentOption {
	return func(e *Environment) {
		e.identities = m
	}
}

// WithServices sets the locator used by the default mapper storage.
func WithServices(services ServiceLocator) EnvironmentOption {
	return func(e *Environment) {
		e.services = services
	}
}

// WithLogger sets the logger handed to mappers.
func WithLogger(logger *slog.Logger) EnvironmentOption {
	return func(e *Environment) {
		e.logger = logger
	}
}

// WithMapperSetup adds a function run on every newly built mapper.
func WithMapperSetup(fn SetupFunc) EnvironmentOption {
	return func(e *Environment) {
		e.setups = append(e.setups, fn)
	}
}

// NewEnvironment returns an Environment with the built-in codecs and an
// enabled identity map.
func NewEnvironment(opts ...EnvironmentOption) *Environment {
	e := &Environment{
		definitions: make(map[string]Definition),
		mappers:     make(map[string]*Mapper),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.types == nil {
		e.types = valuetype.NewRegistry()
	}
	if e.identities == nil {
		e.identities = registry.NewIdentityMap()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

func classKey(class string) string {
	return strings.ToLower(strings.TrimLeft(class, `\/.`))
}

// Register adds entity definitions. Classes are matched case-insensitively
// and may only be registered once.
func (e *Environment) Register(defs ...Definition) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, def := range defs {
		key := classKey(def.Class)
		if key == "" {
			return fmt.Errorf("%w: definition without class name", errs.ErrConfig)
		}
		if _, exists := e.definitions[key]; exists {
			return fmt.Errorf("%w: class %q already registered", errs.ErrConfig, def.Class)
		}
		e.definitions[key] = def
	}
	return nil
}

// Classes lists the registered class names.
func (e *Environment) Classes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	classes := make([]string, 0, len(e.definitions))
	for _, def := range e.definitions {
		classes = append(classes, def.Class)
	}
	sort.Strings(classes)
	return classes
}

// Mapper returns the mapper of class, building it on first use. Setup
// functions run without the environment lock held, so they may request
// other mappers, but not the class being set up.
func (e *Environment) Mapper(class string) (*Mapper, error) {
	key := classKey(class)

	e.mu.Lock()
	if m, ok := e.mappers[key]; ok {
		e.mu.Unlock()
		return m, nil
	}
	m, err := e.build(key)
	setups := append([]SetupFunc(nil), e.setups...)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, setup := range setups {
		if err := setup(m); err != nil {
			return nil, fmt.Errorf("setting up mapper %s: %w", m.class, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// A concurrent caller may have finished first; keep its mapper.
	if existing, ok := e.mappers[key]; ok {
		return existing, nil
	}
	e.mappers[key] = m
	return m, nil
}

// MustMapper is like Mapper but panics on error. It is meant for package
// level wiring where a bad definition is a programming error.
func (e *Environment) MustMapper(class string) *Mapper {
	m, err := e.Mapper(class)
	if err != nil {
		panic(err)
	}
	return m
}

func (e *Environment) build(key string) (*Mapper, error) {
	def, ok := e.definitions[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown class %q", errs.ErrConfig, key)
	}

	// Walk up to the root, then apply definitions from the root down.
	chain := []Definition{def}
	seen := map[string]bool{key: true}
	for parent := def.Parent; parent != ""; {
		pkey := classKey(parent)
		if seen[pkey] {
			return nil, fmt.Errorf("%w: class %q has an inheritance cycle", errs.ErrConfig, def.Class)
		}
		seen[pkey] = true
		pdef, ok := e.definitions[pkey]
		if !ok {
			return nil, fmt.Errorf("%w: class %q extends unknown class %q", errs.ErrConfig, def.Class, parent)
		}
		chain = append(chain, pdef)
		parent = pdef.Parent
	}

	var (
		options Options
		fields  []Field
		hooks   = NewHooks()
	)
	for i := len(chain) - 1; i >= 0; i-- {
		options = options.merge(chain[i].Options)
		fields = mergeFields(fields, chain[i].Fields)
		hooks.extend(chain[i].Hooks)
	}

	schema, err := newSchema(e.types, def.Class, options, fields)
	if err != nil {
		return nil, err
	}

	m := &Mapper{
		env:         e,
		class:       def.Class,
		options:     options,
		schema:      schema,
		entityHooks: hooks,
		hooks:       NewHooks(),
		logger:      e.logger.With("class", def.Class),
	}
	m.storage = &serviceStorage{mapper: m}
	return m, nil
}

// Reset ends a logical request by dropping every tracked entity.
func (e *Environment) Reset() {
	e.identities.Clear()
}

// Types returns the type registry.
func (e *Environment) Types() *valuetype.Registry {
	return e.types
}

// Identities returns the identity map.
func (e *Environment) Identities() *registry.IdentityMap {
	return e.identities
}

// Services returns the service locator, which may be nil.
func (e *Environment) Services() ServiceLocator {
	return e.services
}

// Logger returns the environment logger.
func (e *Environment) Logger() *slog.Logger {
	return e.logger
}
