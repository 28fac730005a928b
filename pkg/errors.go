package xxhverify

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors for package xxhverify.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// File errors
	ErrNotFound     = errors.New("file not found")
	ErrExpectedFile = errors.New("expected file, got directory")

	// Manifest errors
	ErrDigestMissing  = errors.New("no digest computed for discovered file")
	ErrInvalidDigest  = errors.New("invalid hexadecimal digest")
	ErrMalformedLine  = errors.New("malformed manifest line")
	ErrManifestFormat = errors.New("manifest parse error")
	// A relative path the line format cannot carry unchanged
	ErrUnrepresentablePath = errors.New("path cannot be represented in a manifest line")

	// Pipeline errors
	ErrAggregatorClosed   = errors.New("result aggregator closed before send completed")
	ErrVerificationFailed = errors.New("verification failed")
)

// FileError records an I/O failure on one file. A FileError whose cause is
// fs.ErrNotExist also matches ErrNotFound.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNotFound) see through to a not-exist cause
func (e *FileError) Is(target error) bool {
	return target == ErrNotFound && errors.Is(e.Err, fs.ErrNotExist)
}

// IsNotFound reports whether err means the file vanished
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ManifestParseError is returned when a digest field is not valid hex
type ManifestParseError struct {
	Line  int
	Token string
	Err   error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("manifest line %d: cannot parse %q as a 128-bit hex digest: %v", e.Line, e.Token, e.Err)
}

func (e *ManifestParseError) Unwrap() []error { return []error{ErrManifestFormat, e.Err} }

// MalformedLineError is returned for lines that do not split into path and digest
type MalformedLineError struct {
	Line   int
	Text   string
	Fields int
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("manifest line %d: expected 2 fields separated by %q, got %d: %q", e.Line, LineSeparator, e.Fields, e.Text)
}

func (e *MalformedLineError) Unwrap() error { return ErrMalformedLine }

// VerificationError carries the result that stopped a check run
type VerificationError struct {
	Result FileResult
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %s is %s", e.Result.Path, e.Result.Outcome)
}

func (e *VerificationError) Unwrap() error { return ErrVerificationFailed }
