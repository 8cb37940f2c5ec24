// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/storage"
)

// TestUser is the user namespace used by fixtures.
const TestUser = "tester@example.com"

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	User    string
}

// SetupTestDB creates a new in-memory test database with migrations applied.
// Cleanup is registered on t.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return &TestDB{Storage: store, User: TestUser, t: t}
}

// SeedAttributes writes records for the test user or fails the test.
func (db *TestDB) SeedAttributes(records ...model.AttributeRecord) {
	db.t.Helper()
	ctx := context.Background()
	for _, r := range records {
		patch := model.AttributePatch{
			Name:           model.Ptr(r.Attributes.Name),
			Variety:        model.Ptr(r.Attributes.Variety),
			TransplantDate: model.Ptr(r.Attributes.TransplantDate),
		}
		if err := db.Storage.MergeParcelAttributes(ctx, db.User, r.ID, patch); err != nil {
			db.t.Fatalf("failed to seed parcel %q: %v", r.ID, err)
		}
	}
}
