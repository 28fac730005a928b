package xxhverify

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// GenerateOptions controls a generate run
type GenerateOptions struct {
	Workers      int            // admission tokens, DefaultHashWorkers if zero
	ResultBuffer int            // aggregator capacity, DefaultResultBuffer if zero
	BufferSize   int            // hash chunk size, DefaultBufferSize if zero
	Ignore       *IgnoreManager // may be nil
	// OnResult is called once per hashed file in completion order.
	// Calls are serialized.
	OnResult func(Result)
}

// GenerateStats describes a finished generate run
type GenerateStats struct {
	RunID        string
	Files        int
	PeakAdmitted int
}

// Generate fingerprints every file below root and writes the manifest to
// manifestPath. Any hashing failure, including a file that vanished after
// enumeration, aborts the run and leaves an existing manifest untouched.
func Generate(ctx context.Context, root, manifestPath string, opts GenerateOptions) (*Manifest, *GenerateStats, error) {
	defer VerboseEnter()()
	stats := &GenerateStats{RunID: uuid.NewString()}
	VerboseLog(1, "Generate run %s: root=%s manifest=%s", stats.RunID, root, manifestPath)

	// Step 1: enumerate, never fingerprinting the manifest or our own temp files
	files, err := Enumerate(ctx, root, EnumerateOptions{
		Ignore:        opts.Ignore,
		Exclude:       []string{manifestPath},
		ManifestNames: []string{filepath.Base(manifestPath)},
	})
	if err != nil {
		return nil, stats, err
	}
	stats.Files = len(files)
	for _, file := range files {
		rel, err := relativeTo(root, file)
		if err != nil {
			return nil, stats, err
		}
		if err := checkRepresentable(rel); err != nil {
			return nil, stats, err
		}
	}

	// Step 2: fan out one unit per file and collect exactly len(files) results
	digests, peak, err := hashAll(ctx, files, opts)
	stats.PeakAdmitted = peak
	if err != nil {
		return nil, stats, err
	}

	// Step 3: order by discovery and write atomically
	manifest, err := BuildManifest(root, files, digests)
	if err != nil {
		return nil, stats, err
	}
	if err := WriteManifestFile(manifestPath, manifest); err != nil {
		return nil, stats, err
	}

	return manifest, stats, nil
}

// hashAll hashes files under a scheduler and gathers the digests through an
// aggregator. The scheduler and the collector share one cancellable context,
// so a failing unit also stops the collector and vice versa.
func hashAll(ctx context.Context, files []string, opts GenerateOptions) (map[string]Digest, int, error) {
	defer VerboseEnter()()
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultHashWorkers
	}
	capacity := opts.ResultBuffer
	if capacity <= 0 {
		capacity = DefaultResultBuffer
	}

	scheduler := NewScheduler(workers)
	aggregator := NewAggregator(capacity)
	hasher := NewHasher(opts.BufferSize)

	var reportMu sync.Mutex
	report := func(r Result) {
		if opts.OnResult == nil {
			return
		}
		reportMu.Lock()
		defer reportMu.Unlock()
		opts.OnResult(r)
	}

	var digests map[string]Digest
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		digests, err = aggregator.Collect(gctx, len(files))
		return err
	})

	g.Go(func() error {
		return scheduler.Run(gctx, len(files), func(ctx context.Context, i int) error {
			d, err := hasher.HashFile(ctx, files[i])
			if err != nil {
				if IsNotFound(err) {
					return fmt.Errorf("file disappeared after enumeration: %w", err)
				}
				return err
			}
			if err := aggregator.Send(ctx, Result{Path: files[i], Digest: d}); err != nil {
				return err
			}
			report(Result{Path: files[i], Digest: d})
			return nil
		})
	})

	err := g.Wait()
	if IsDebugEnabled(DebugSchedule) {
		started, finished := scheduler.Stats()
		VerboseLog(3, "hashAll: started=%d finished=%d peak=%d", started, finished, scheduler.Peak())
	}
	if err != nil {
		return nil, scheduler.Peak(), err
	}
	return digests, scheduler.Peak(), nil
}
