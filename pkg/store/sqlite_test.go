package store

import (
	"context"
	"path/filepath"
	"testing"

	"comicvox/pkg/db"
	"comicvox/pkg/model"
)

func TestSQLiteStore(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	defer d.Close()

	store := NewSQLiteStore(d)
	ctx := context.Background()

	testOCRCache(t, ctx, store)
	testSession(t, ctx, store)
	testState(t, ctx, store)
}

func TestSyncOCREngine(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	defer d.Close()

	store := NewSQLiteStore(d)
	ctx := context.Background()

	// First run: nothing recorded yet, no cache to invalidate.
	changed, err := SyncOCREngine(ctx, store, "tesseract")
	if err != nil {
		t.Fatalf("SyncOCREngine failed: %v", err)
	}
	if changed {
		t.Error("first sync should not report a change")
	}

	// Same engine again is a no-op.
	if changed, _ = SyncOCREngine(ctx, store, "tesseract"); changed {
		t.Error("unchanged engine should not report a change")
	}

	// Switching engines reports the change and records the new one.
	rect := model.Rect{Left: 0, Top: 0, Width: 50, Height: 20}
	if err := store.SetOCRText(ctx, "hash-1", rect, "BAM!"); err != nil {
		t.Fatalf("SetOCRText failed: %v", err)
	}
	if changed, _ = SyncOCREngine(ctx, store, "gemini"); !changed {
		t.Error("engine switch should report a change")
	}
	if val, ok := store.GetState(ctx, ocrEngineKey); !ok || val != "gemini" {
		t.Errorf("recorded engine = %q, %v; want gemini, true", val, ok)
	}

	// The old engine's texts are dropped with it.
	if err := d.ClearOCRCache(); err != nil {
		t.Fatalf("ClearOCRCache failed: %v", err)
	}
	if _, ok := store.GetOCRText(ctx, "hash-1", rect); ok {
		t.Error("expected empty cache after clear")
	}
}

func testOCRCache(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("OCRCache", func(t *testing.T) {
		rect := model.Rect{Left: 10, Top: 20, Width: 100, Height: 50}

		if _, ok := store.GetOCRText(ctx, "hash-1", rect); ok {
			t.Error("expected cache miss on empty table")
		}

		if err := store.SetOCRText(ctx, "hash-1", rect, "WHAM!"); err != nil {
			t.Fatalf("SetOCRText failed: %v", err)
		}

		text, ok := store.GetOCRText(ctx, "hash-1", rect)
		if !ok || text != "WHAM!" {
			t.Errorf("GetOCRText = %q, %v; want WHAM!, true", text, ok)
		}

		// Same hash, different rect is a distinct key.
		other := model.Rect{Left: 10, Top: 20, Width: 100, Height: 60}
		if _, ok := store.GetOCRText(ctx, "hash-1", other); ok {
			t.Error("expected miss for different rect")
		}

		// Upsert replaces.
		if err := store.SetOCRText(ctx, "hash-1", rect, "POW!"); err != nil {
			t.Fatalf("SetOCRText upsert failed: %v", err)
		}
		if text, _ := store.GetOCRText(ctx, "hash-1", rect); text != "POW!" {
			t.Errorf("after upsert GetOCRText = %q, want POW!", text)
		}
	})
}

func testSession(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("Session", func(t *testing.T) {
		if _, ok := store.GetLastIndex(ctx, "doc-1"); ok {
			t.Error("expected no session initially")
		}

		if err := store.SetLastIndex(ctx, "doc-1", 4); err != nil {
			t.Fatalf("SetLastIndex failed: %v", err)
		}
		if idx, ok := store.GetLastIndex(ctx, "doc-1"); !ok || idx != 4 {
			t.Errorf("GetLastIndex = %d, %v; want 4, true", idx, ok)
		}

		if err := store.SetLastIndex(ctx, "doc-1", 7); err != nil {
			t.Fatalf("SetLastIndex update failed: %v", err)
		}
		if idx, _ := store.GetLastIndex(ctx, "doc-1"); idx != 7 {
			t.Errorf("GetLastIndex after update = %d, want 7", idx)
		}

		if err := store.DeleteSession(ctx, "doc-1"); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if _, ok := store.GetLastIndex(ctx, "doc-1"); ok {
			t.Error("expected session gone after delete")
		}
	})
}

func testState(t *testing.T, ctx context.Context, store *SQLiteStore) {
	t.Run("State", func(t *testing.T) {
		if _, ok := store.GetState(ctx, "volume"); ok {
			t.Error("expected no state initially")
		}

		if err := store.SetState(ctx, "volume", "0.8"); err != nil {
			t.Fatalf("SetState failed: %v", err)
		}
		if val, ok := store.GetState(ctx, "volume"); !ok || val != "0.8" {
			t.Errorf("GetState = %q, %v; want 0.8, true", val, ok)
		}

		if err := store.DeleteState(ctx, "volume"); err != nil {
			t.Fatalf("DeleteState failed: %v", err)
		}
		if _, ok := store.GetState(ctx, "volume"); ok {
			t.Error("expected state gone after delete")
		}
	})
}
