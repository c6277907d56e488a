/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/suparena/entitymapper/cache"
	"github.com/suparena/entitymapper/cache/ddbcache"
	"github.com/suparena/entitymapper/cache/memory"
	"github.com/suparena/entitymapper/config"
	"github.com/suparena/entitymapper/datamapper"
	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/datastore/ddb"
	"github.com/suparena/entitymapper/datastore/mock"
	"github.com/suparena/entitymapper/datastore/sqlite"
	errs "github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/logging"
	"github.com/suparena/entitymapper/processor"
	"github.com/suparena/entitymapper/registry"
	"github.com/suparena/entitymapper/valuetype"
)

// App owns the services, caches and environment built from a Config.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	services *datastore.Container
	env      *datamapper.Environment
	envOpts  []datamapper.EnvironmentOption

	mu     sync.RWMutex
	caches map[string]cache.Store
}

// Option customizes Open.
type Option func(*App) error

// WithLogger replaces the logger built from the logging section.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithService registers a storage service next to the configured ones.
func WithService(name string, ds datastore.DataStore) Option {
	return func(a *App) error {
		return a.services.Register(name, ds)
	}
}

// WithCache registers a side cache next to the configured ones.
func WithCache(name string, store cache.Store) Option {
	return func(a *App) error {
		return a.addCache(name, store)
	}
}

// WithTypes replaces the default type registry.
func WithTypes(types *valuetype.Registry) Option {
	return func(a *App) error {
		a.envOpts = append(a.envOpts, datamapper.WithTypes(types))
		return nil
	}
}

// Open connects every configured service and cache and registers the schema
// files. A nil cfg uses config.Default.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	a := &App{
		cfg:      cfg,
		services: datastore.NewContainer(),
		caches:   make(map[string]cache.Store),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	if a.logger == nil {
		a.logger = logging.New(cfg.Logging, Version)
	}

	if err := a.openServices(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if err := a.openCaches(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	identities := registry.NewIdentityMap()
	if !cfg.Registry.Enabled {
		identities.Disable()
	}

	envOpts := append([]datamapper.EnvironmentOption{
		datamapper.WithServices(a.services),
		datamapper.WithIdentityMap(identities),
		datamapper.WithLogger(a.logger),
		datamapper.WithMapperSetup(a.attachCache),
	}, a.envOpts...)
	a.env = datamapper.NewEnvironment(envOpts...)

	if err := processor.Register(a.env, cfg.Schemas.Files...); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("loading schemas: %w", err)
	}

	a.logger.Info("entitymapper ready",
		"services", a.services.Names(),
		"caches", a.CacheNames(),
		"classes", len(a.env.Classes()),
	)
	return a, nil
}

func (a *App) openServices(ctx context.Context) error {
	for _, svc := range a.cfg.Services {
		ds, err := a.openService(ctx, svc)
		if err != nil {
			return fmt.Errorf("opening service %q: %w", svc.Name, err)
		}
		if err := a.services.Register(svc.Name, ds); err != nil {
			if closer, ok := ds.(io.Closer); ok {
				_ = closer.Close()
			}
			return err
		}
		a.logger.Info("service opened", "name", svc.Name, "driver", svc.Driver)
	}
	return nil
}

func (a *App) openService(ctx context.Context, svc config.ServiceConfig) (datastore.DataStore, error) {
	switch svc.Driver {
	case config.DriverMemory:
		return mock.New(), nil
	case config.DriverSQLite:
		return sqlite.Open(sqlite.Config{
			Path:        svc.SQLite.Path,
			WALMode:     svc.SQLite.WALMode,
			BusyTimeout: svc.SQLite.BusyTimeout,
		})
	case config.DriverDynamoDB:
		client, err := ddb.NewClient(ctx, a.dynamoConfig(svc.DynamoDB))
		if err != nil {
			return nil, err
		}
		return ddb.New(client,
			ddb.WithTablePrefix(svc.DynamoDB.TablePrefix),
			ddb.WithLogger(a.logger.With("service", svc.Name)),
		), nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", errs.ErrConfig, svc.Driver)
	}
}

func (a *App) openCaches(ctx context.Context) error {
	for _, cc := range a.cfg.Caches {
		var store cache.Store
		switch cc.Driver {
		case config.DriverMemory:
			store = memory.New()
		case config.DriverDynamoDB:
			client, err := ddb.NewClient(ctx, a.dynamoConfig(cc.DynamoDB))
			if err != nil {
				return fmt.Errorf("opening cache %q: %w", cc.Name, err)
			}
			store = ddbcache.New(client, cc.DynamoDB.TablePrefix+cc.DynamoDB.Table)
		default:
			return fmt.Errorf("%w: cache %q has unknown driver %q", errs.ErrConfig, cc.Name, cc.Driver)
		}
		if err := a.addCache(cc.Name, store); err != nil {
			return err
		}
		a.logger.Info("cache opened", "name", cc.Name, "driver", cc.Driver)
	}
	return nil
}

// dynamoConfig fills empty per-service settings from the aws section.
func (a *App) dynamoConfig(c config.DynamoDBConfig) ddb.Config {
	cfg := ddb.Config{
		Region:    c.Region,
		AccessKey: a.cfg.AWS.AccessKey,
		SecretKey: a.cfg.AWS.SecretKey,
		Endpoint:  c.Endpoint,
	}
	if cfg.Region == "" {
		cfg.Region = a.cfg.AWS.Region
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = a.cfg.AWS.Endpoint
	}
	return cfg
}

func (a *App) addCache(name string, store cache.Store) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.caches[name]; exists {
		return fmt.Errorf("%w: cache %q already registered", errs.ErrConfig, name)
	}
	a.caches[name] = store
	return nil
}

// attachCache puts the cache decorator in front of mappers that name a
// cache service.
func (a *App) attachCache(m *datamapper.Mapper) error {
	name := m.Options().CacheService
	if name == "" {
		return nil
	}
	store, err := a.Cache(name)
	if err != nil {
		return err
	}
	cache.Attach(m, store)
	return nil
}

// Register adds entity definitions to the environment.
func (a *App) Register(defs ...datamapper.Definition) error {
	return a.env.Register(defs...)
}

// Mapper returns the mapper of class.
func (a *App) Mapper(class string) (*datamapper.Mapper, error) {
	return a.env.Mapper(class)
}

// ResetRequest ends a logical request by clearing the identity map.
func (a *App) ResetRequest() {
	a.env.Reset()
}

// Environment returns the shared environment.
func (a *App) Environment() *datamapper.Environment { return a.env }

// Services returns the named storage services.
func (a *App) Services() *datastore.Container { return a.services }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Cache returns the side cache registered under name.
func (a *App) Cache(name string) (cache.Store, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	store, ok := a.caches[name]
	if !ok {
		return nil, fmt.Errorf("%w: cache %q not found", errs.ErrConfig, name)
	}
	return store, nil
}

// CacheNames lists the registered cache names.
func (a *App) CacheNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.caches))
	for name := range a.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every service.
func (a *App) Close() error {
	return a.services.Close()
}
