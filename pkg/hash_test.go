package xxhverify

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestHashFileDeterministic(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "a.txt")
	writeTestFile(t, path, []byte("hello"))

	hasher := NewHasher(0)
	first, err := hasher.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	second, err := hasher.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	if first != second {
		t.Errorf("Expected identical digests, got %s and %s", first, second)
	}
	if first != HashBytes([]byte("hello")) {
		t.Errorf("Streamed digest %s differs from in-memory digest %s", first, HashBytes([]byte("hello")))
	}
}

func TestHashFileSensitivity(t *testing.T) {
	tempDir := t.TempDir()
	data := bytes.Repeat([]byte("0123456789abcdef"), 4096)
	path := filepath.Join(tempDir, "data.bin")
	writeTestFile(t, path, data)

	hasher := NewHasher(0)
	before, err := hasher.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	data[len(data)/2] ^= 0x01
	writeTestFile(t, path, data)

	after, err := hasher.HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if before == after {
		t.Errorf("Expected digest to change after flipping one bit, both are %s", before)
	}
}

func TestHashFileBufferSizes(t *testing.T) {
	tempDir := t.TempDir()
	rng := rand.New(rand.NewSource(42))
	data := make([]byte, 1<<20+777) // not a multiple of any buffer size
	rng.Read(data)
	path := filepath.Join(tempDir, "large.bin")
	writeTestFile(t, path, data)

	expected := HashBytes(data)
	for _, size := range []int{512, 4096, DefaultBufferSize, 1 << 20, 4 << 20} {
		got, err := NewHasher(size).HashFile(context.Background(), path)
		if err != nil {
			t.Fatalf("HashFile with buffer %d failed: %v", size, err)
		}
		if got != expected {
			t.Errorf("Buffer %d: expected %s, got %s", size, expected, got)
		}
	}
}

func TestHashFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	writeTestFile(t, path, nil)

	got, err := NewHasher(0).HashFile(context.Background(), path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if got != HashBytes(nil) {
		t.Errorf("Expected empty digest %s, got %s", HashBytes(nil), got)
	}
}

func TestHashFileNotFound(t *testing.T) {
	_, err := NewHasher(0).HashFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected fs.ErrNotExist, got %v", err)
	}

	var fileErr *FileError
	if !errors.As(err, &fileErr) || fileErr.Op != "open" {
		t.Errorf("Expected *FileError with op open, got %#v", err)
	}
}

func TestHashFileDirectory(t *testing.T) {
	_, err := NewHasher(0).HashFile(context.Background(), t.TempDir())
	if !errors.Is(err, ErrExpectedFile) {
		t.Errorf("Expected ErrExpectedFile, got %v", err)
	}
	if IsNotFound(err) {
		t.Error("A directory must not be reported as not found")
	}
}

func TestHashFileCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeTestFile(t, path, []byte("hello"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHasher(0).HashFile(ctx, path)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDigestString(t *testing.T) {
	testCases := []struct {
		digest   Digest
		expected string
	}{
		{Digest{}, "0"},
		{Digest{Lo: 0xabc}, "abc"},
		{Digest{Lo: 0xffffffffffffffff}, "ffffffffffffffff"},
		{Digest{Hi: 1}, "10000000000000000"},
		{Digest{Hi: 0xdead, Lo: 0xbeef}, "dead000000000000beef"},
		{Digest{Hi: 0xffffffffffffffff, Lo: 0xffffffffffffffff}, "ffffffffffffffffffffffffffffffff"},
	}

	for _, tc := range testCases {
		if got := tc.digest.String(); got != tc.expected {
			t.Errorf("Digest %#v: expected %q, got %q", tc.digest, tc.expected, got)
		}
	}
}

func TestParseDigest(t *testing.T) {
	testCases := []struct {
		input    string
		expected Digest
		valid    bool
	}{
		{"0", Digest{}, true},
		{"000", Digest{}, true},
		{"abc", Digest{Lo: 0xabc}, true},
		{"ABC", Digest{Lo: 0xabc}, true},
		{"00abc", Digest{Lo: 0xabc}, true},
		{"10000000000000000", Digest{Hi: 1}, true},
		{"dead000000000000beef", Digest{Hi: 0xdead, Lo: 0xbeef}, true},
		{"0ffffffffffffffffffffffffffffffff", Digest{Hi: ^uint64(0), Lo: ^uint64(0)}, true},
		{"1ffffffffffffffffffffffffffffffff", Digest{}, false}, // 129 bits
		{"", Digest{}, false},
		{"zz", Digest{}, false},
		{"12 34", Digest{}, false},
		{"-1", Digest{}, false},
		{"+1", Digest{}, false},
	}

	for _, tc := range testCases {
		got, err := ParseDigest(tc.input)
		if tc.valid {
			if err != nil {
				t.Errorf("ParseDigest(%q) failed: %v", tc.input, err)
			} else if got != tc.expected {
				t.Errorf("ParseDigest(%q): expected %#v, got %#v", tc.input, tc.expected, got)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDigest) {
			t.Errorf("ParseDigest(%q): expected ErrInvalidDigest, got %v", tc.input, err)
		}
	}
}

func TestDigestStringParseRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		d := Digest{Hi: rng.Uint64() >> uint(rng.Intn(64)), Lo: rng.Uint64()}
		if i%10 == 0 {
			d.Hi = 0
		}
		got, err := ParseDigest(d.String())
		if err != nil {
			t.Fatalf("ParseDigest(%q) failed: %v", d.String(), err)
		}
		if got != d {
			t.Fatalf("Round trip of %#v gave %#v", d, got)
		}
	}
}
