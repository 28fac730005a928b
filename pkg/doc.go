// Package xxhverify fingerprints every file in a directory tree with
// XXH3-128, records the digests in a plain text manifest, and later checks
// the tree against that manifest to find modified or missing files.
//
// # Generate
//
// Enumerate the tree, hash every file concurrently and write the manifest
// atomically:
//
//	manifest, stats, err := xxhverify.Generate(ctx, "/srv/data", "/srv/data.xxh", xxhverify.GenerateOptions{})
//
// At most Workers files (16 by default) are open and being hashed at once.
// Digests reach the collector through a bounded channel, so hashing slows
// down rather than buffering without limit when the collector falls behind.
//
// # Check
//
// Decode the manifest and re-hash every entry:
//
//	report, err := xxhverify.CheckManifest(ctx, "/srv/data", "/srv/data.xxh", xxhverify.CheckOptions{})
//	if errors.Is(err, xxhverify.ErrVerificationFailed) {
//		fmt.Println(report.Summary())
//	}
//
// The first mismatching or missing file stops the run unless KeepGoing is
// set. Read errors other than a missing file always stop it.
//
// # Manifest format
//
// One line per file, in the order the files were discovered:
//
//	[relative/path | 9f3c0e1a2b4d5e6f7081920a1b2c3d4e]
//
// The digest is lowercase hex without leading zeros.
//
// # Configuration
//
// Settings live in an ini file (see LoadConfig) and can be overridden with
// "key:value" strings. Enable debug output with:
//
//	xxhverify.SetDebugFlags("scan,hash,verify")
//	xxhverify.SetVerboseLevel(2)
package xxhverify
