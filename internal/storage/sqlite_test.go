package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/service"
)

const testUser = "farmer@example.com"

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func TestSQLiteStorage_MergeParcelAttributes(t *testing.T) {
	tests := []struct {
		setup   func(*testing.T, *SQLiteStorage, context.Context)
		patch   model.AttributePatch
		name    string
		id      string
		want    model.Attributes
		wantErr bool
	}{
		{
			name:  "creates new parcel",
			id:    "p1",
			patch: model.AttributePatch{Name: model.Ptr("North"), Variety: model.Ptr("コシヒカリ")},
			want:  model.Attributes{Name: "North", Variety: "コシヒカリ"},
		},
		{
			name: "unset fields keep stored values",
			id:   "p1",
			setup: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				err := s.MergeParcelAttributes(ctx, testUser, "p1", model.AttributePatch{
					Name:           model.Ptr("North"),
					Variety:        model.Ptr("コシヒカリ"),
					TransplantDate: model.Ptr("2025-05-01"),
				})
				if err != nil {
					t.Fatalf("setup merge failed: %v", err)
				}
			},
			patch: model.AttributePatch{TransplantDate: model.Ptr("2025-05-10")},
			want:  model.Attributes{Name: "North", Variety: "コシヒカリ", TransplantDate: "2025-05-10"},
		},
		{
			name: "empty string clears a field",
			id:   "p1",
			setup: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				if err := s.MergeParcelAttributes(ctx, testUser, "p1", model.AttributePatch{Name: model.Ptr("North")}); err != nil {
					t.Fatalf("setup merge failed: %v", err)
				}
			},
			patch: model.AttributePatch{Name: model.Ptr("")},
			want:  model.Attributes{},
		},
		{
			name: "custom fields merge key-wise",
			id:   "p1",
			setup: func(t *testing.T, s *SQLiteStorage, ctx context.Context) {
				t.Helper()
				err := s.MergeParcelAttributes(ctx, testUser, "p1", model.AttributePatch{
					Custom: map[string]string{"owner": "Sato", "soil": "clay"},
				})
				if err != nil {
					t.Fatalf("setup merge failed: %v", err)
				}
			},
			patch: model.AttributePatch{Custom: map[string]string{"soil": "loam"}},
			want:  model.Attributes{Custom: map[string]string{"owner": "Sato", "soil": "loam"}},
		},
		{
			name:    "empty id is rejected",
			id:      "",
			patch:   model.AttributePatch{Name: model.Ptr("x")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			if tt.setup != nil {
				tt.setup(t, store, ctx)
			}

			err := store.MergeParcelAttributes(ctx, testUser, tt.id, tt.patch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MergeParcelAttributes() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got, err := store.GetParcelAttribute(ctx, testUser, tt.id)
			if err != nil {
				t.Fatalf("GetParcelAttribute() error = %v", err)
			}
			assertAttributes(t, tt.want, *got)
		})
	}
}

func TestSQLiteStorage_GetParcelAttributes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.MergeParcelAttributes(ctx, testUser, id, model.AttributePatch{Name: model.Ptr("field " + id)}); err != nil {
			t.Fatalf("Failed to merge %s: %v", id, err)
		}
	}
	if err := store.MergeParcelAttributes(ctx, "other@example.com", "z", model.AttributePatch{Name: model.Ptr("other")}); err != nil {
		t.Fatalf("Failed to merge other user's parcel: %v", err)
	}

	records, err := store.GetParcelAttributes(ctx, testUser)
	if err != nil {
		t.Fatalf("GetParcelAttributes() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, id := range []string{"a", "b", "c"} {
		if records[i].ID != id {
			t.Errorf("records[%d].ID = %q, want %q", i, records[i].ID, id)
		}
	}

	_, err = store.GetParcelAttribute(ctx, testUser, "z")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another user's parcel, got %v", err)
	}
}

func TestSQLiteStorage_DeleteParcelAttributes(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.MergeParcelAttributes(ctx, testUser, "p1", model.AttributePatch{Name: model.Ptr("x")}); err != nil {
		t.Fatalf("Failed to merge: %v", err)
	}
	if err := store.DeleteParcelAttributes(ctx, testUser, "p1"); err != nil {
		t.Fatalf("DeleteParcelAttributes() error = %v", err)
	}
	if _, err := store.GetParcelAttribute(ctx, testUser, "p1"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is not an error.
	if err := store.DeleteParcelAttributes(ctx, testUser, "p1"); err != nil {
		t.Errorf("Second delete returned error: %v", err)
	}
}

func TestSQLiteStorage_BatchOperations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	writes := []service.ParcelWrite{
		{ID: "a", Patch: model.BulkPatch("コシヒカリ", "2025-05-01")},
		{ID: "", Patch: model.BulkPatch("コシヒカリ", "")},
		{ID: "b", Patch: model.BulkPatch("", "2025-05-02")},
	}
	results, err := store.BatchMergeParcelAttributes(ctx, testUser, writes)
	if err != nil {
		t.Fatalf("BatchMergeParcelAttributes() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("Unexpected item errors: %v, %v", results[0].Err, results[2].Err)
	}
	if !errors.Is(results[1].Err, ErrEmptyString) {
		t.Errorf("Expected ErrEmptyString for blank id, got %v", results[1].Err)
	}

	records, err := store.GetParcelAttributes(ctx, testUser)
	if err != nil {
		t.Fatalf("GetParcelAttributes() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 stored parcels, got %d", len(records))
	}

	delResults, err := store.BatchDeleteParcelAttributes(ctx, testUser, []string{"a", "missing"})
	if err != nil {
		t.Fatalf("BatchDeleteParcelAttributes() error = %v", err)
	}
	for _, r := range delResults {
		if r.Err != nil {
			t.Errorf("delete %s: unexpected error %v", r.ID, r.Err)
		}
	}

	records, err = store.GetParcelAttributes(ctx, testUser)
	if err != nil {
		t.Fatalf("GetParcelAttributes() error = %v", err)
	}
	if len(records) != 1 || records[0].ID != "b" {
		t.Errorf("Expected only b to remain, got %+v", records)
	}
}

func TestSQLiteStorage_Migrations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", ExpectedSchemaVersion, version)
	}

	// Running again is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Errorf("Second Migrate() error = %v", err)
	}

	for _, table := range []string{"parcel_attributes", "variety_colors", "weather_credentials", "varieties"} {
		var name string
		err := store.db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("Table %s missing: %v", table, err)
		}
	}
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			if err := store.MergeParcelAttributes(ctx, testUser, id, model.AttributePatch{Name: model.Ptr(id)}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent merge failed: %v", err)
	}

	records, err := store.GetParcelAttributes(ctx, testUser)
	if err != nil {
		t.Fatalf("GetParcelAttributes() error = %v", err)
	}
	if len(records) != 20 {
		t.Errorf("Expected 20 parcels, got %d", len(records))
	}
}

func assertAttributes(t *testing.T, want, got model.Attributes) {
	t.Helper()
	if got.Name != want.Name || got.Variety != want.Variety || got.TransplantDate != want.TransplantDate {
		t.Errorf("Attributes = %+v, want %+v", got, want)
	}
	if len(got.Custom) != len(want.Custom) {
		t.Fatalf("Custom = %v, want %v", got.Custom, want.Custom)
	}
	for k, v := range want.Custom {
		if got.Custom[k] != v {
			t.Errorf("Custom[%q] = %q, want %q", k, got.Custom[k], v)
		}
	}
}
