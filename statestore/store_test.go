package statestore

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMissingKey(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get(KeyDeviceID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected missing key, got present")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put(KeyDeviceID, "dev-123"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, ok, err := store.Get(KeyDeviceID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected key present")
	}
	if value != "dev-123" {
		t.Errorf("Expected dev-123, got %q", value)
	}
}

func TestPutOverwrites(t *testing.T) {
	store := openTestStore(t)

	store.Put(KeyActivationCode, "OLD123")
	if err := store.Put(KeyActivationCode, "NEW456"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	value, _, err := store.Get(KeyActivationCode)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "NEW456" {
		t.Errorf("Expected NEW456, got %q", value)
	}
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.Put(KeyDeviceID, "persisted")
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Get(KeyDeviceID)
	if err != nil || !ok {
		t.Fatalf("Get after reopen: value=%q ok=%v err=%v", value, ok, err)
	}
	if value != "persisted" {
		t.Errorf("Expected persisted, got %q", value)
	}
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	store.Put(KeyDeviceID, "gone")
	if err := store.Delete(KeyDeviceID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, ok, _ := store.Get(KeyDeviceID)
	if ok {
		t.Error("Expected key absent after delete")
	}

	// Deleting again is a no-op
	if err := store.Delete(KeyDeviceID); err != nil {
		t.Errorf("Second Delete returned %v", err)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Expected error for empty path")
	}
}
