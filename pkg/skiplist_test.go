package xxhverify

import (
	"testing"
)

func TestManifestIndexPutLookup(t *testing.T) {
	index := NewManifestIndex("/tree")
	if !index.IsEmpty() {
		t.Fatal("Expected new index to be empty")
	}

	index.Put(IndexEntry{Path: "/tree/b", RelPath: "b", Digest: Digest{Lo: 2}, Line: 1})
	index.Put(IndexEntry{Path: "/tree/a", RelPath: "a", Digest: Digest{Lo: 1}, Line: 2})

	if index.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", index.Len())
	}

	e, ok := index.Lookup("/tree/a")
	if !ok {
		t.Fatal("Expected to find /tree/a")
	}
	if e.Digest != (Digest{Lo: 1}) || e.Line != 2 {
		t.Errorf("Unexpected entry: %#v", e)
	}

	if _, ok := index.Lookup("/tree/c"); ok {
		t.Error("Did not expect to find /tree/c")
	}
}

func TestManifestIndexReplace(t *testing.T) {
	index := NewManifestIndex("/tree")

	if prev := index.Put(IndexEntry{Path: "/tree/a", Digest: Digest{Lo: 1}, Line: 1}); prev != nil {
		t.Errorf("Expected no replaced entry, got %#v", prev)
	}
	prev := index.Put(IndexEntry{Path: "/tree/a", Digest: Digest{Lo: 9}, Line: 4})
	if prev == nil || prev.Line != 1 {
		t.Fatalf("Expected replaced entry from line 1, got %#v", prev)
	}

	if index.Len() != 1 {
		t.Errorf("Expected 1 entry after replace, got %d", index.Len())
	}
	e, _ := index.Lookup("/tree/a")
	if e.Digest != (Digest{Lo: 9}) {
		t.Errorf("Expected later digest to win, got %s", e.Digest)
	}
}

func TestManifestIndexOrder(t *testing.T) {
	index := NewManifestIndex("/tree")
	for _, p := range []string{"/tree/m", "/tree/z", "/tree/a", "/tree/dir/b", "/tree/c"} {
		index.Put(IndexEntry{Path: p})
	}

	entries := index.Entries()
	expected := []string{"/tree/a", "/tree/c", "/tree/dir/b", "/tree/m", "/tree/z"}
	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(entries))
	}
	for i, e := range entries {
		if e.Path != expected[i] {
			t.Errorf("Entry %d: expected %s, got %s", i, expected[i], e.Path)
		}
	}

	// ForEach stops when the callback returns false
	visited := 0
	index.ForEach(func(*IndexEntry) bool {
		visited++
		return visited < 2
	})
	if visited != 2 {
		t.Errorf("Expected ForEach to stop after 2 entries, visited %d", visited)
	}

	if len(index.Digests()) != len(expected) {
		t.Errorf("Expected %d digests", len(expected))
	}
}
