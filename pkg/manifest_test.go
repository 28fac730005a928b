package xxhverify

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	assert.Equal(t, "[a.txt | abc]", FormatLine("a.txt", Digest{Lo: 0xabc}))
	assert.Equal(t, "[dir/b.txt | 0]", FormatLine("dir/b.txt", Digest{}))
}

func TestParseLine(t *testing.T) {
	testCases := []struct {
		line   string
		path   string
		digest string
		fields int
		ok     bool
	}{
		{"[a.txt | abc]", "a.txt", "abc", 2, true},
		{"  [dir/b c.txt | 0]  ", "dir/b c.txt", "0", 2, true},
		{"a.txt | abc", "a.txt", "abc", 2, true},
		{"[a.txt abc]", "", "", 1, false},
		{"[a | b | c]", "", "", 3, false},
	}

	for _, tc := range testCases {
		path, digest, fields, ok := ParseLine(tc.line)
		assert.Equal(t, tc.ok, ok, "line %q", tc.line)
		assert.Equal(t, tc.fields, fields, "line %q", tc.line)
		if tc.ok {
			assert.Equal(t, tc.path, path)
			assert.Equal(t, tc.digest, digest)
		}
	}
}

func TestBuildManifestDiscoveryOrder(t *testing.T) {
	root := "/tree"
	files := []string{"/tree/z.txt", "/tree/a/b.txt", "/tree/m.txt"}
	digests := map[string]Digest{
		"/tree/a/b.txt": {Lo: 2},
		"/tree/m.txt":   {Lo: 3},
		"/tree/z.txt":   {Lo: 1},
	}

	m, err := BuildManifest(root, files, digests)
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	assert.Equal(t, Entry{RelPath: "z.txt", Digest: Digest{Lo: 1}}, m.Entries[0])
	assert.Equal(t, Entry{RelPath: filepath.Join("a", "b.txt"), Digest: Digest{Lo: 2}}, m.Entries[1])
	assert.Equal(t, Entry{RelPath: "m.txt", Digest: Digest{Lo: 3}}, m.Entries[2])
}

func TestBuildManifestDigestMissing(t *testing.T) {
	_, err := BuildManifest("/tree", []string{"/tree/a", "/tree/b"}, map[string]Digest{"/tree/a": {Lo: 1}})
	require.ErrorIs(t, err, ErrDigestMissing)
	assert.Contains(t, err.Error(), "/tree/b")
}

func TestBuildManifestOutsideRoot(t *testing.T) {
	_, err := BuildManifest("/tree", []string{"/elsewhere/a"}, map[string]Digest{"/elsewhere/a": {}})
	require.Error(t, err)
}

func TestBuildManifestUnrepresentablePath(t *testing.T) {
	for _, name := range []string{"a | b.txt", " lead.txt", "[br.txt", "]br.txt", "end |", "new\nline", "cr\rline"} {
		file := filepath.Join("/tree", name)
		_, err := BuildManifest("/tree", []string{file}, map[string]Digest{file: {Lo: 1}})
		assert.ErrorIs(t, err, ErrUnrepresentablePath, "name %q", name)
	}
}

func TestBuildManifestAwkwardNamesRoundTrip(t *testing.T) {
	names := []string{"trail.txt ", "x]", "sub/ lead.txt", "sub/[br.txt", "a|b", "pipe |x"}
	files := make([]string, len(names))
	digests := make(map[string]Digest, len(names))
	for i, name := range names {
		files[i] = filepath.Join("/tree", name)
		digests[files[i]] = Digest{Lo: uint64(i + 1)}
	}

	m, err := BuildManifest("/tree", files, digests)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)

	index, err := DecodeManifest(&buf, "/tree", MalformedError)
	require.NoError(t, err)
	require.Equal(t, len(names), index.Len())
	for i, file := range files {
		got, ok := index.Lookup(file)
		require.True(t, ok, "missing %q", names[i])
		assert.Equal(t, digests[file], got.Digest)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	root := "/tree"
	m := &Manifest{Root: root, Entries: []Entry{
		{RelPath: "b.txt", Digest: HashBytes([]byte("b"))},
		{RelPath: "a.txt", Digest: HashBytes([]byte("a"))},
		{RelPath: "sub/with space.txt", Digest: Digest{}},
		{RelPath: "sub/x.bin", Digest: Digest{Hi: ^uint64(0), Lo: 1}},
	}}

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)

	index, err := DecodeManifest(&buf, root, MalformedError)
	require.NoError(t, err)
	require.Equal(t, len(m.Entries), index.Len())

	for _, e := range m.Entries {
		got, ok := index.Lookup(filepath.Join(root, e.RelPath))
		require.True(t, ok, "missing %s", e.RelPath)
		assert.Equal(t, e.Digest, got.Digest)
		assert.Equal(t, e.RelPath, got.RelPath)
	}
}

func TestDecodeManifestCaseAndLeadingZeros(t *testing.T) {
	input := "[a.txt | 00ABCdef]\n"
	index, err := DecodeManifest(strings.NewReader(input), "/tree", MalformedError)
	require.NoError(t, err)

	e, ok := index.Lookup("/tree/a.txt")
	require.True(t, ok)
	assert.Equal(t, Digest{Lo: 0xabcdef}, e.Digest)
	assert.Equal(t, 1, e.Line)
}

func TestDecodeManifestBadDigest(t *testing.T) {
	input := "[good.txt | abc]\n[a.txt | zz]\n"
	_, err := DecodeManifest(strings.NewReader(input), "/tree", MalformedSkip)
	require.Error(t, err)

	var parseErr *ManifestParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Line)
	assert.Equal(t, "zz", parseErr.Token)
	assert.ErrorIs(t, err, ErrManifestFormat)
	assert.ErrorIs(t, err, ErrInvalidDigest)
}

func TestDecodeManifestMalformedPolicy(t *testing.T) {
	input := "[a.txt | abc]\nthis line has no separator\n[b.txt | def]\n"

	t.Run("error", func(t *testing.T) {
		_, err := DecodeManifest(strings.NewReader(input), "/tree", MalformedError)
		var lineErr *MalformedLineError
		require.True(t, errors.As(err, &lineErr), "got %v", err)
		assert.Equal(t, 2, lineErr.Line)
		assert.Equal(t, 1, lineErr.Fields)
		assert.ErrorIs(t, err, ErrMalformedLine)
	})

	t.Run("default is error", func(t *testing.T) {
		_, err := DecodeManifest(strings.NewReader(input), "/tree", "")
		assert.ErrorIs(t, err, ErrMalformedLine)
	})

	t.Run("warn", func(t *testing.T) {
		var logBuf bytes.Buffer
		prev := SetLogOutput(&logBuf)
		defer SetLogOutput(prev)

		index, err := DecodeManifest(strings.NewReader(input), "/tree", MalformedWarn)
		require.NoError(t, err)
		assert.Equal(t, 2, index.Len())
		assert.Contains(t, logBuf.String(), "malformed manifest line 2")
	})

	t.Run("skip", func(t *testing.T) {
		var logBuf bytes.Buffer
		prev := SetLogOutput(&logBuf)
		defer SetLogOutput(prev)

		index, err := DecodeManifest(strings.NewReader(input), "/tree", MalformedSkip)
		require.NoError(t, err)
		assert.Equal(t, 2, index.Len())
		assert.Empty(t, logBuf.String())
	})

	t.Run("unknown policy", func(t *testing.T) {
		_, err := DecodeManifest(strings.NewReader(input), "/tree", "ignore")
		require.Error(t, err)
	})
}

func TestDecodeManifestSeparatorInPath(t *testing.T) {
	// A path containing " | " cannot be represented; it is a malformed line
	_, err := DecodeManifest(strings.NewReader("[a | b.txt | abc]\n"), "/tree", MalformedError)
	assert.ErrorIs(t, err, ErrMalformedLine)
}

func TestDecodeManifestBlankLines(t *testing.T) {
	input := "\n[a.txt | 1]\n   \n\n[b.txt | 2]\n"
	index, err := DecodeManifest(strings.NewReader(input), "/tree", MalformedError)
	require.NoError(t, err)
	assert.Equal(t, 2, index.Len())
}

func TestDecodeManifestDuplicateLastWins(t *testing.T) {
	input := "[a.txt | 1]\n[b.txt | 2]\n[a.txt | 3]\n"
	index, err := DecodeManifest(strings.NewReader(input), "/tree", MalformedError)
	require.NoError(t, err)
	require.Equal(t, 2, index.Len())

	e, ok := index.Lookup("/tree/a.txt")
	require.True(t, ok)
	assert.Equal(t, Digest{Lo: 3}, e.Digest)
	assert.Equal(t, 3, e.Line)
}

func TestDecodeManifestEmpty(t *testing.T) {
	index, err := DecodeManifest(strings.NewReader(""), "/tree", MalformedError)
	require.NoError(t, err)
	assert.True(t, index.IsEmpty())
}

func TestWriteManifestFile(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "tree.xxh")

	m := &Manifest{Root: "/tree"}
	for i := 0; i < 3000; i++ { // more lines than one writev call takes
		m.Entries = append(m.Entries, Entry{RelPath: fmt.Sprintf("f%04d", i), Digest: Digest{Lo: uint64(i)}})
	}
	require.NoError(t, WriteManifestFile(manifestPath, m))

	var expected bytes.Buffer
	_, err := m.WriteTo(&expected)
	require.NoError(t, err)

	got, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, expected.String(), string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteManifestFileReplacesExisting(t *testing.T) {
	manifestPath := filepath.Join(t.TempDir(), "tree.xxh")
	require.NoError(t, os.WriteFile(manifestPath, []byte("[old | 1]\n"), 0644))

	m := &Manifest{Entries: []Entry{{RelPath: "new", Digest: Digest{Lo: 2}}}}
	require.NoError(t, WriteManifestFile(manifestPath, m))

	got, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	assert.Equal(t, "[new | 2]\n", string(got))
}

func TestWriteManifestFileFailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory at the destination makes the rename fail
	manifestPath := filepath.Join(dir, "tree.xxh")
	writeTestFile(t, filepath.Join(manifestPath, "occupied"), []byte("x"))

	m := &Manifest{Entries: []Entry{{RelPath: "a", Digest: Digest{Lo: 1}}}}
	require.Error(t, WriteManifestFile(manifestPath, m))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tree.xxh", entries[0].Name())
}

func TestTempManifestName(t *testing.T) {
	name := TempManifestName("tree.xxh")
	assert.True(t, strings.HasPrefix(name, ".tree.xxh."))
	assert.True(t, IsTempManifestName(name, "tree.xxh"))
	assert.False(t, IsTempManifestName(name, "other.xxh"))
	assert.False(t, IsTempManifestName(".tree.xxh.notauuid.tmp", "tree.xxh"))
	assert.False(t, IsTempManifestName("tree.xxh", "tree.xxh"))
	assert.NotEqual(t, name, TempManifestName("tree.xxh"))
}

func TestConsume(t *testing.T) {
	bufs := [][]byte{[]byte("abc"), []byte("de"), []byte("f")}
	rest := consume(bufs, 4)
	require.Len(t, rest, 2)
	assert.Equal(t, "e", string(rest[0]))
	assert.Equal(t, "f", string(rest[1]))
	assert.Empty(t, consume(rest, 2))
}
