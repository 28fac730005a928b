package xxhverify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one manifest line: a path relative to the tree root and its digest
type Entry struct {
	RelPath string
	Digest  Digest
}

// Manifest is the ordered list of entries written by a generate run.
// Order is discovery order, not sorted.
type Manifest struct {
	Root    string
	Entries []Entry
}

// FormatLine renders one manifest line without the trailing newline
func FormatLine(relPath string, d Digest) string {
	return LineOpen + relPath + LineSeparator + d.String() + LineClose
}

// BuildManifest pairs each discovered file with its digest, in the order of
// files. Every file must have a digest; a gap is ErrDigestMissing.
func BuildManifest(root string, files []string, digests map[string]Digest) (*Manifest, error) {
	defer VerboseEnter()()
	m := &Manifest{Root: root, Entries: make([]Entry, 0, len(files))}
	for _, file := range files {
		d, ok := digests[file]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrDigestMissing, file)
		}
		rel, err := relativeTo(root, file)
		if err != nil {
			return nil, err
		}
		if err := checkRepresentable(rel); err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, Entry{RelPath: rel, Digest: d})
	}
	return m, nil
}

// relativeTo strips root from file, refusing paths outside the tree
func relativeTo(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("failed to make %s relative to %s: %w", file, root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("file %s is outside tree root %s", file, root)
	}
	return rel, nil
}

// checkRepresentable rejects a relative path that would not decode back to
// itself. Decoding splits on the separator and trims "[] " from the line.
func checkRepresentable(rel string) error {
	switch {
	case strings.Contains(rel, LineSeparator),
		strings.ContainsAny(rel, "\n\r"),
		rel != "" && strings.ContainsRune(lineTrimSet, rune(rel[0])),
		strings.HasSuffix(rel, strings.TrimRight(LineSeparator, " ")):
		return fmt.Errorf("%w: %q", ErrUnrepresentablePath, rel)
	}
	return nil
}

// Len returns the number of entries
func (m *Manifest) Len() int {
	return len(m.Entries)
}

// Lines returns every encoded line including its newline
func (m *Manifest) Lines() [][]byte {
	lines := make([][]byte, len(m.Entries))
	for i, e := range m.Entries {
		lines[i] = []byte(FormatLine(e.RelPath, e.Digest) + "\n")
	}
	return lines
}

// WriteTo writes the encoded manifest to w
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	for _, e := range m.Entries {
		n, err := bw.WriteString(FormatLine(e.RelPath, e.Digest) + "\n")
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}

// ValidateMalformedPolicy validates a malformed-line policy name
func ValidateMalformedPolicy(policy string) error {
	switch policy {
	case MalformedError, MalformedWarn, MalformedSkip:
		return nil
	default:
		return fmt.Errorf("unsupported malformed line policy: %s (supported: error, warn, skip)", policy)
	}
}

// ParseLine splits one manifest line into its path and digest fields.
// ok is false when the line does not have exactly two fields.
func ParseLine(line string) (relPath, digest string, fields int, ok bool) {
	trimmed := strings.Trim(line, lineTrimSet)
	parts := strings.Split(trimmed, LineSeparator)
	if len(parts) != 2 {
		return "", "", len(parts), false
	}
	return parts[0], parts[1], 2, true
}

// DecodeManifest reads manifest lines from r into an index keyed by the
// tree root joined with each relative path. A digest that is not valid hex
// aborts with *ManifestParseError. Lines without exactly two fields are
// handled according to policy. Blank lines are ignored.
func DecodeManifest(r io.Reader, root, policy string) (*ManifestIndex, error) {
	defer VerboseEnter()()
	if policy == "" {
		policy = MalformedError
	}
	if err := ValidateMalformedPolicy(policy); err != nil {
		return nil, err
	}

	index := NewManifestIndex(root)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		relPath, token, fields, ok := ParseLine(line)
		if !ok {
			switch policy {
			case MalformedError:
				return nil, &MalformedLineError{Line: lineNum, Text: line, Fields: fields}
			case MalformedWarn:
				Warnf("skipping malformed manifest line %d: %q", lineNum, line)
			}
			continue
		}

		d, err := ParseDigest(token)
		if err != nil {
			return nil, &ManifestParseError{Line: lineNum, Token: token, Err: err}
		}

		entry := IndexEntry{
			Path:    filepath.Join(root, relPath),
			RelPath: relPath,
			Digest:  d,
			Line:    lineNum,
		}
		if prev := index.Put(entry); prev != nil && IsDebugEnabled(DebugManifest) {
			VerboseLog(2, "manifest line %d overrides line %d for %s", lineNum, prev.Line, relPath)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}

	VerboseLog(1, "Loaded %d manifest entries from %d lines", index.Len(), lineNum)
	return index, nil
}

// ReadManifestFile opens and decodes the manifest at manifestPath
func ReadManifestFile(manifestPath, root, policy string) (*ManifestIndex, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	return DecodeManifest(file, root, policy)
}
