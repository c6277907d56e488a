//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package entitymapper_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/suparena/entitymapper"
	"github.com/suparena/entitymapper/config"
	"github.com/suparena/entitymapper/datamapper"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/valuetype"
)

// The data table needs a string partition key "id"; the cache table a
// string partition key "pk" with TTL enabled on "ttl".
func setupApp(t *testing.T) *entitymapper.App {
	_ = godotenv.Load(".env")

	table := os.Getenv("DDB_TEST_TABLE_NAME")
	cacheTable := os.Getenv("DDB_CACHE_TABLE_NAME")
	if table == "" || cacheTable == "" {
		t.Skip("DDB_TEST_TABLE_NAME or DDB_CACHE_TABLE_NAME not set, skipping integration test")
	}

	cfg := config.Default()
	cfg.AWS = config.AWSConfig{
		Region:    os.Getenv("AWS_REGION"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
		SecretKey: os.Getenv("AWS_SECRET_KEY"),
		Endpoint:  os.Getenv("DDB_ENDPOINT"),
	}
	cfg.Services = []config.ServiceConfig{{Name: "ddb", Driver: config.DriverDynamoDB}}
	cfg.Caches = []config.CacheConfig{{
		Name:     "ddb",
		Driver:   config.DriverDynamoDB,
		DynamoDB: config.DynamoDBConfig{Table: cacheTable},
	}}

	app, err := entitymapper.Open(context.Background(), cfg,
		entitymapper.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { app.Close() })

	err = app.Register(datamapper.Definition{
		Class: "integration.user",
		Options: datamapper.Options{
			Service:      "ddb",
			Collection:   table,
			CacheService: "ddb",
			CachePolicy:  &datamapper.CachePolicy{Insert: true, Update: true, NotFound: true},
		},
		Fields: []datamapper.Field{
			{Name: "id", Attribute: valuetype.Attribute{Type: "uuid", PrimaryKey: true, AutoGenerate: true}},
			{Name: "email", Attribute: valuetype.Attribute{Type: "string"}},
			{Name: "visits", Attribute: valuetype.Attribute{Type: "integer", Default: 0}},
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return app
}

func TestIntegrationLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	app := setupApp(t)
	users, err := app.Mapper("integration.user")
	if err != nil {
		t.Fatalf("Mapper() error = %v", err)
	}

	// Missing ids are remembered as tombstones.
	missing := uuid.NewString()
	if d, err := users.Find(ctx, missing); err != nil || d != nil {
		t.Fatalf("Find(missing) = %v, %v", d, err)
	}

	user, err := users.New(map[string]any{"email": "integration@example.com"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := user.Save(ctx); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	id := user.ID()

	app.ResetRequest()
	found, err := users.FindOrFail(ctx, id)
	if err != nil {
		t.Fatalf("FindOrFail() error = %v", err)
	}
	if found.MustGet("email") != "integration@example.com" {
		t.Errorf("email = %v", found.MustGet("email"))
	}

	if err := found.Set("visits", 3); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := found.Save(ctx); err != nil {
		t.Fatalf("Save() update error = %v", err)
	}
	if err := found.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if found.MustGet("visits") != int64(3) {
		t.Errorf("visits = %#v, want 3", found.MustGet("visits"))
	}

	if err := found.Destroy(ctx); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	app.ResetRequest()
	if _, err := users.FindOrFail(ctx, id); !errors.IsNotFound(err) {
		t.Errorf("expected not found after destroy, got %v", err)
	}
}
