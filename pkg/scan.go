package xxhverify

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnumerateOptions controls which paths the enumerator returns
type EnumerateOptions struct {
	Ignore  *IgnoreManager // may be nil
	Exclude []string       // absolute paths never returned
	// Temporary files of these manifest names are never returned
	ManifestNames []string
}

// Enumerate walks root and returns every regular file below it as an
// absolute path, in lexical walk order. Symlinks to regular files are
// returned; symlinked directories are not descended. Entries that cannot
// be read are skipped, but an unreadable root is an error.
func Enumerate(ctx context.Context, root string, opts EnumerateOptions) ([]string, error) {
	defer VerboseEnter()()

	info, err := os.Stat(root)
	if err != nil {
		return nil, &FileError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tree root %s is not a directory", root)
	}

	if opts.Ignore != nil {
		if err := opts.Ignore.LoadIgnorePatterns(); err != nil {
			return nil, fmt.Errorf("failed to load ignore patterns: %w", err)
		}
	}

	// A symlinked root is walked through its target but reported under root
	walkRoot := root
	if linfo, err := os.Lstat(root); err == nil && linfo.Mode()&fs.ModeSymlink != 0 {
		if walkRoot, err = filepath.EvalSymlinks(root); err != nil {
			return nil, &FileError{Op: "resolve", Path: root, Err: err}
		}
	}

	excluded := make(map[string]struct{}, len(opts.Exclude))
	for _, p := range opts.Exclude {
		excluded[filepath.Clean(p)] = struct{}{}
	}

	var files []string
	err = filepath.WalkDir(walkRoot, func(walked string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if walked == walkRoot {
				return walkErr
			}
			if IsDebugEnabled(DebugScan) {
				VerboseLog(3, "Enumerate: skipping %s: %v", walked, walkErr)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil // Skip inaccessible paths
		}
		if walked == walkRoot {
			return nil
		}

		relPath, err := filepath.Rel(walkRoot, walked)
		if err != nil {
			return nil
		}
		path := filepath.Join(root, relPath)
		if opts.Ignore != nil && opts.Ignore.ShouldIgnore(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			return nil
		case d.Type().IsRegular():
		case d.Type()&fs.ModeSymlink != 0:
			// Keep symlinks whose target is a regular file
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		default:
			return nil // devices, sockets, pipes
		}

		if _, skip := excluded[path]; skip {
			return nil
		}
		if isTempManifest(d.Name(), opts.ManifestNames) {
			return nil
		}

		if IsDebugEnabled(DebugScan) {
			VerboseLog(3, "Enumerate: found file %s", relPath)
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate %s: %w", root, err)
	}

	VerboseLog(1, "Enumerated %d files under %s", len(files), root)
	return files, nil
}

func isTempManifest(name string, manifestNames []string) bool {
	for _, base := range manifestNames {
		if IsTempManifestName(name, base) {
			return true
		}
	}
	return false
}
