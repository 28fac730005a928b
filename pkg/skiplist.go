package xxhverify

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// IndexEntry is one decoded manifest line
type IndexEntry struct {
	Path    string // tree root joined with RelPath, used for I/O
	RelPath string // path as written in the manifest
	Digest  Digest
	Line    int // 1-based manifest line number
}

// ManifestIndex holds a decoded manifest as a skiplist ordered by Path.
// Keys are unique: a later Put for the same path replaces the earlier entry.
type ManifestIndex struct {
	Root     string
	skiplist *zcsl.ZeroCopySkiplist[IndexEntry, string, string]
}

// NewManifestIndex creates an empty index for entries below root
func NewManifestIndex(root string) *ManifestIndex {
	getKeyFromItem := func(e *IndexEntry) string {
		return e.Path
	}

	getItemSize := func(e *IndexEntry) int {
		return len(e.Path) + len(e.RelPath) + 16
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &ManifestIndex{
		Root: root,
		skiplist: zcsl.MakeZeroCopySkiplist[IndexEntry, string, string](
			16,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Put stores entry, returning the entry it replaced if the path was present
func (mi *ManifestIndex) Put(entry IndexEntry) (replaced *IndexEntry) {
	if node, _ := mi.skiplist.Find(entry.Path); node != nil {
		prev := *node.Item()
		replaced = &prev
		mi.skiplist.Delete(entry.Path)
	}
	stored := entry
	mi.skiplist.Insert(&stored, ManifestContext)
	return replaced
}

// Lookup finds the entry for an absolute path
func (mi *ManifestIndex) Lookup(path string) (IndexEntry, bool) {
	node, _ := mi.skiplist.Find(path)
	if node == nil {
		return IndexEntry{}, false
	}
	return *node.Item(), true
}

// Len returns the number of unique paths
func (mi *ManifestIndex) Len() int {
	return mi.skiplist.Length()
}

// IsEmpty returns true if the index has no entries
func (mi *ManifestIndex) IsEmpty() bool {
	return mi.skiplist.IsEmpty()
}

// ForEach visits entries in path order until callback returns false
func (mi *ManifestIndex) ForEach(callback func(*IndexEntry) bool) {
	for current := mi.skiplist.First(); current != nil; current = current.Next() {
		if !callback(current.Item()) {
			break
		}
	}
}

// Entries returns a copy of every entry in path order
func (mi *ManifestIndex) Entries() []IndexEntry {
	entries := make([]IndexEntry, 0, mi.Len())
	mi.ForEach(func(e *IndexEntry) bool {
		entries = append(entries, *e)
		return true
	})
	return entries
}

// Digests returns the index as a path to digest map
func (mi *ManifestIndex) Digests() map[string]Digest {
	digests := make(map[string]Digest, mi.Len())
	mi.ForEach(func(e *IndexEntry) bool {
		digests[e.Path] = e.Digest
		return true
	})
	return digests
}
