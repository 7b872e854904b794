package codes

import (
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codes.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func TestStoreOpenMissingFile(t *testing.T) {
	s, _ := tempStore(t)
	if got := s.List(); len(got) != 0 {
		t.Errorf("fresh store holds %d codes", len(got))
	}
}

func TestStoreAddAndReopen(t *testing.T) {
	s, path := tempStore(t)

	added, err := s.Add(Code{Name: "github", Secret: rfcSecret})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if added.ID == "" {
		t.Error("added code has no id")
	}
	if added.Digits != 6 || added.Period != 30 {
		t.Errorf("defaults not applied: digits %d period %d", added.Digits, added.Period)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	list := reopened.List()
	if len(list) != 1 {
		t.Fatalf("reopened store holds %d codes, want 1", len(list))
	}
	if list[0] != added {
		t.Errorf("reopened code %+v, want %+v", list[0], added)
	}
}

func TestStoreAddValidation(t *testing.T) {
	s, _ := tempStore(t)
	if _, err := s.Add(Code{Secret: rfcSecret}); err == nil {
		t.Error("code without name accepted")
	}
	if _, err := s.Add(Code{Name: "x", Secret: "not!base32"}); err == nil {
		t.Error("code with invalid secret accepted")
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("rejected adds left %d entries", len(got))
	}
}

func TestStoreAddURIDeduplicates(t *testing.T) {
	s, _ := tempStore(t)
	uri := "otpauth://totp/Example:alice?secret=" + rfcSecret

	first, added, err := s.AddURI(uri)
	if err != nil || !added {
		t.Fatalf("AddURI = (%v, %v, %v), want added", first, added, err)
	}

	// Scanning the same QR twice is routine; it must not duplicate.
	second, added, err := s.AddURI(uri)
	if err != nil {
		t.Fatalf("second AddURI: %v", err)
	}
	if added {
		t.Error("duplicate scan reported as a new entry")
	}
	if second.ID != first.ID {
		t.Errorf("duplicate scan resolved to id %s, want %s", second.ID, first.ID)
	}
	if got := s.List(); len(got) != 1 {
		t.Errorf("store holds %d codes after duplicate scan, want 1", len(got))
	}
}

func TestStoreRemove(t *testing.T) {
	s, path := tempStore(t)
	added, err := s.Add(Code{Name: "github", Secret: rfcSecret})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Remove(added.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("store holds %d codes after remove", len(got))
	}
	if err := s.Remove(added.ID); err == nil {
		t.Error("removing a missing id succeeded")
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	if got := reopened.List(); len(got) != 0 {
		t.Errorf("removal not persisted, %d codes on disk", len(got))
	}
}

func TestStoreRemoveKeepsEntryWhenWriteFails(t *testing.T) {
	s, _ := tempStore(t)
	added, err := s.Add(Code{Name: "github", Secret: rfcSecret})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Point the store at a path whose parent is a regular file so the next
	// save cannot create the directory.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatalf("writing blocker file: %v", err)
	}
	s.path = filepath.Join(blocker, "codes.json")

	if err := s.Remove(added.ID); err == nil {
		t.Fatal("Remove succeeded with an unwritable store")
	}
	got := s.List()
	if len(got) != 1 || got[0].ID != added.ID {
		t.Errorf("failed remove dropped the entry, store holds %+v", got)
	}
}
