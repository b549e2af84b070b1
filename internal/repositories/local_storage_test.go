package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/tdx/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestLocalStorage(t *testing.T) {
	t.Run("GetItem Missing", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))

		value, ok, err := store.GetItem("access_token")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok || value != "" {
			t.Errorf("expected missing key, got %q, %v", value, ok)
		}
	})

	t.Run("SetItem Then GetItem", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))

		if err := store.SetItem("access_token", "first"); err != nil {
			t.Fatalf("failed to set item: %v", err)
		}
		if err := store.SetItem("access_token", "second"); err != nil {
			t.Fatalf("failed to overwrite item: %v", err)
		}

		value, ok, err := store.GetItem("access_token")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok || value != "second" {
			t.Errorf("expected overwritten value, got %q, %v", value, ok)
		}
	})

	t.Run("RemoveItem Is Idempotent", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))

		if err := store.SetItem("access_token", "tok"); err != nil {
			t.Fatalf("failed to set item: %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := store.RemoveItem("access_token"); err != nil {
				t.Fatalf("remove #%d failed: %v", i+1, err)
			}
		}

		if _, ok, _ := store.GetItem("access_token"); ok {
			t.Error("expected key to be removed")
		}
	})

	t.Run("Keys And Clear", func(t *testing.T) {
		store := NewLocalStorage(setupTestDB(t))

		for _, k := range []string{"b", "a"} {
			if err := store.SetItem(k, "v"); err != nil {
				t.Fatalf("failed to set %s: %v", k, err)
			}
		}

		keys, err := store.Keys()
		if err != nil {
			t.Fatalf("failed to list keys: %v", err)
		}
		if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
			t.Errorf("unexpected keys %v", keys)
		}

		if err := store.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if keys, _ := store.Keys(); len(keys) != 0 {
			t.Errorf("expected no keys after clear, got %v", keys)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		store := NewLocalStorage(db)
		db.Close()

		if _, _, err := store.GetItem("k"); err == nil {
			t.Error("expected error on closed database")
		}
		if err := store.SetItem("k", "v"); err == nil {
			t.Error("expected error on closed database")
		}
	})
}
