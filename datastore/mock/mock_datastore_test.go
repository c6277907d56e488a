/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mock_test

import (
	"context"
	"testing"
	"time"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/datastore/mock"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

var _ datastore.DataStore = (*mock.DataStore)(nil)
var _ datastore.Scanner = (*mock.DataStore)(nil)

func TestMockDataStore(t *testing.T) {
	ctx := context.Background()
	pk := []string{"id"}

	t.Run("BasicOperations", func(t *testing.T) {
		mockStore := mock.New()

		err := mockStore.Insert(ctx, "users", storagemodels.Record{"id": "123", "name": "Test"}, pk)
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		retrieved, err := mockStore.Get(ctx, "users", storagemodels.Key{"id": "123"})
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if retrieved["name"] != "Test" {
			t.Fatalf("Retrieved record mismatch: %+v", retrieved)
		}

		err = mockStore.Update(ctx, "users", storagemodels.Key{"id": "123"}, storagemodels.Record{"name": "Changed"})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		retrieved, _ = mockStore.Get(ctx, "users", storagemodels.Key{"id": "123"})
		if retrieved["name"] != "Changed" {
			t.Fatalf("Update not applied: %+v", retrieved)
		}

		if err := mockStore.Delete(ctx, "users", storagemodels.Key{"id": "123"}); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		retrieved, err = mockStore.Get(ctx, "users", storagemodels.Key{"id": "123"})
		if err != nil || retrieved != nil {
			t.Fatalf("Expected missing record, got: %v, %v", retrieved, err)
		}

		if err := mockStore.Delete(ctx, "users", storagemodels.Key{"id": "123"}); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found error, got: %v", err)
		}
	})

	t.Run("GeneratedKeys", func(t *testing.T) {
		mockStore := mock.New()

		for i := 0; i < 2; i++ {
			if err := mockStore.Insert(ctx, "users", storagemodels.Record{"name": "x"}, pk); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}
		id, err := mockStore.LastID(ctx, "users", "id")
		if err != nil {
			t.Fatalf("LastID failed: %v", err)
		}
		if id != int64(2) {
			t.Fatalf("Expected last id 2, got %v", id)
		}

		if _, err := mockStore.LastID(ctx, "other", "id"); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found for unknown collection, got %v", err)
		}
	})

	t.Run("Duplicates", func(t *testing.T) {
		mockStore := mock.New()
		rec := storagemodels.Record{"id": 1}
		_ = mockStore.Insert(ctx, "users", rec, pk)
		if err := mockStore.Insert(ctx, "users", rec, pk); !errors.IsAlreadyExists(err) {
			t.Fatalf("Expected already exists, got %v", err)
		}
	})

	t.Run("ErrorSimulation", func(t *testing.T) {
		insertErr := errors.NewValidationError("name", "required")
		deleteErr := errors.NewConditionFailedError("delete", "version mismatch")
		mockStore := mock.New().WithInsertError(insertErr).WithDeleteError(deleteErr)

		if err := mockStore.Insert(ctx, "users", storagemodels.Record{"id": 1}, pk); err != insertErr {
			t.Fatalf("Expected insert error, got: %v", err)
		}
		if err := mockStore.Delete(ctx, "users", storagemodels.Key{"id": 1}); err != deleteErr {
			t.Fatalf("Expected delete error, got: %v", err)
		}
		if mockStore.Calls(mock.OpInsert) != 1 || mockStore.Calls(mock.OpDelete) != 1 {
			t.Fatal("failed calls should still be counted")
		}
	})

	t.Run("Scan", func(t *testing.T) {
		mockStore := mock.New()
		mockStore.Seed("users", pk,
			storagemodels.Record{"id": "1", "name": "One"},
			storagemodels.Record{"id": "2", "name": "Two"},
			storagemodels.Record{"id": "3", "name": "Three"},
		)

		streamCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		count := 0
		for result := range mockStore.Scan(streamCtx, "users", storagemodels.WithBufferSize(1)) {
			if result.Error != nil {
				t.Fatalf("Stream error: %v", result.Error)
			}
			if result.Meta.Index != int64(count) {
				t.Fatalf("Expected index %d, got %d", count, result.Meta.Index)
			}
			count++
		}
		if count != 3 {
			t.Fatalf("Expected 3 streamed records, got %d", count)
		}
	})

	t.Run("HelperMethods", func(t *testing.T) {
		mockStore := mock.New()
		mockStore.Seed("users", pk, storagemodels.Record{"id": 1}, storagemodels.Record{"id": 2})

		if mockStore.Count("users") != 2 {
			t.Fatalf("Expected count 2, got %d", mockStore.Count("users"))
		}
		if len(mockStore.Records("users")) != 2 {
			t.Fatal("Expected 2 records")
		}

		_, _ = mockStore.Get(ctx, "users", storagemodels.Key{"id": 1})
		if mockStore.Calls(mock.OpGet) != 1 {
			t.Fatalf("Expected 1 get call, got %d", mockStore.Calls(mock.OpGet))
		}

		mockStore.Clear()
		if mockStore.Count("users") != 0 || mockStore.Calls(mock.OpGet) != 0 {
			t.Fatal("Clear should drop records and counters")
		}
	})
}
