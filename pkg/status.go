package xxhverify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Outcome classifies one checked file
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeMismatch
	OutcomeMissing
	OutcomeIOFailure
)

// String returns the word printed for the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return WordSuccess
	case OutcomeMismatch:
		return WordFailure
	case OutcomeMissing:
		return WordMissing
	default:
		return WordError
	}
}

// FileResult is the outcome of re-hashing one manifest entry
type FileResult struct {
	Path     string
	RelPath  string
	Outcome  Outcome
	Expected Digest
	Actual   Digest // zero unless the file was hashed
	Err      error  // set for Missing and IOFailure
}

// CheckReport lists the outcomes observed in one check run, sorted by path.
// After a fail-fast stop it holds only the units that finished.
type CheckReport struct {
	Results   []FileResult
	Entries   int // entries in the manifest
	Success   int
	Mismatch  int
	Missing   int
	IOFailure int
}

// Passed returns true when every manifest entry was checked and matched
func (r *CheckReport) Passed() bool {
	return r.Success == r.Entries && r.Mismatch == 0 && r.Missing == 0 && r.IOFailure == 0
}

// Failed returns the results that were not Success
func (r *CheckReport) Failed() []FileResult {
	var failed []FileResult
	for _, res := range r.Results {
		if res.Outcome != OutcomeSuccess {
			failed = append(failed, res)
		}
	}
	return failed
}

// Summary returns a one-line description of the counts
func (r *CheckReport) Summary() string {
	return fmt.Sprintf("%d entries: %d success, %d failure, %d missing, %d error, %d not checked",
		r.Entries, r.Success, r.Mismatch, r.Missing, r.IOFailure, r.Entries-len(r.Results))
}

// Reporter receives each result as soon as its unit completes.
// Calls are serialized.
type Reporter interface {
	Report(FileResult)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(FileResult)

func (f ReporterFunc) Report(r FileResult) { f(r) }

// VerifyOptions controls a check run
type VerifyOptions struct {
	Workers    int  // admission tokens, DefaultHashWorkers if zero
	BufferSize int  // hash chunk size, DefaultBufferSize if zero
	KeepGoing  bool // record Mismatch and Missing without stopping
	Reporter   Reporter
}

// Verifier re-hashes every entry of a manifest index and compares digests
type Verifier struct {
	index     *ManifestIndex
	hasher    *Hasher
	scheduler *Scheduler
	keepGoing bool
	reporter  Reporter

	mu      sync.Mutex
	results []FileResult
}

// NewVerifier creates a verifier for index
func NewVerifier(index *ManifestIndex, opts VerifyOptions) *Verifier {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultHashWorkers
	}
	return &Verifier{
		index:     index,
		hasher:    NewHasher(opts.BufferSize),
		scheduler: NewScheduler(workers),
		keepGoing: opts.KeepGoing,
		reporter:  opts.Reporter,
	}
}

// Scheduler exposes the verifier's scheduler for inspection
func (v *Verifier) Scheduler() *Scheduler {
	return v.scheduler
}

// Check runs one unit per manifest entry. Without KeepGoing the first
// Mismatch or Missing result cancels the remaining units. An IOFailure
// always does. Each call starts a fresh report. A failed check returns
// the report together with a *VerificationError, or the *FileError of an
// IOFailure.
func (v *Verifier) Check(ctx context.Context) (*CheckReport, error) {
	defer VerboseEnter()()
	entries := v.index.Entries()
	v.mu.Lock()
	v.results = nil
	v.mu.Unlock()
	VerboseLog(1, "Checking %d files with %d workers", len(entries), v.scheduler.Limit())

	runErr := v.scheduler.Run(ctx, len(entries), func(ctx context.Context, i int) error {
		return v.checkEntry(ctx, entries[i])
	})

	report := v.buildReport(len(entries))
	VerboseLog(1, "Check finished: %s", report.Summary())

	if runErr != nil {
		return report, runErr
	}
	if failed := report.Failed(); len(failed) > 0 {
		return report, &VerificationError{Result: failed[0]}
	}
	return report, nil
}

// checkEntry hashes one file and records its outcome
func (v *Verifier) checkEntry(ctx context.Context, entry IndexEntry) error {
	actual, err := v.hasher.HashFile(ctx, entry.Path)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Cancelled by another unit; not an outcome of this file
		return err
	}

	result := classify(entry, actual, err)
	v.record(result)

	if IsDebugEnabled(DebugVerify) {
		VerboseLog(3, "checkEntry: %s expected=%s actual=%s outcome=%s", entry.RelPath, entry.Digest, actual, result.Outcome)
	}

	switch result.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeIOFailure:
		return result.Err
	default:
		if v.keepGoing {
			return nil
		}
		return &VerificationError{Result: result}
	}
}

// classify maps a hash attempt to an outcome in priority order:
// not found, other I/O error, equal digest, different digest
func classify(entry IndexEntry, actual Digest, err error) FileResult {
	result := FileResult{
		Path:     entry.Path,
		RelPath:  entry.RelPath,
		Expected: entry.Digest,
		Err:      err,
	}
	switch {
	case err != nil && IsNotFound(err):
		result.Outcome = OutcomeMissing
	case err != nil:
		result.Outcome = OutcomeIOFailure
	case actual == entry.Digest:
		result.Outcome = OutcomeSuccess
		result.Actual = actual
	default:
		result.Outcome = OutcomeMismatch
		result.Actual = actual
	}
	return result
}

func (v *Verifier) record(result FileResult) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.results = append(v.results, result)
	if v.reporter != nil {
		v.reporter.Report(result)
	}
}

func (v *Verifier) buildReport(entries int) *CheckReport {
	v.mu.Lock()
	results := make([]FileResult, len(v.results))
	copy(results, v.results)
	v.mu.Unlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})

	report := &CheckReport{Results: results, Entries: entries}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeSuccess:
			report.Success++
		case OutcomeMismatch:
			report.Mismatch++
		case OutcomeMissing:
			report.Missing++
		case OutcomeIOFailure:
			report.IOFailure++
		}
	}
	return report
}

// CheckManifest decodes manifestPath against root and verifies it.
// A manifest that fails to decode is returned before any file is hashed.
func CheckManifest(ctx context.Context, root, manifestPath string, opts CheckOptions) (*CheckReport, error) {
	defer VerboseEnter()()
	index, err := ReadManifestFile(manifestPath, root, opts.Malformed)
	if err != nil {
		return nil, err
	}
	return NewVerifier(index, opts.VerifyOptions).Check(ctx)
}

// CheckOptions combines decoding and verification options
type CheckOptions struct {
	VerifyOptions
	Malformed string // malformed line policy
}
