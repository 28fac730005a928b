package main

import (
	"fmt"

	"github.com/spf13/cobra"

	xxhverify "github.com/mattkeenan/xxhverify/pkg"
)

// NewGenerateCmd creates the generate subcommand
func NewGenerateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate ROOT MANIFEST",
		Short: "Hash every file under ROOT and write MANIFEST",
		Long: `Hash every regular file under ROOT and write MANIFEST atomically.

Each file is printed as "[path | hex]" as soon as its digest is known, in
completion order. The manifest itself lists files in discovery order, with
paths relative to ROOT. An existing MANIFEST is only replaced once every
file has been hashed.

Symlinks to regular files are hashed through the link.
Symlinked directories are not descended.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args[0], args[1])
		},
	}
}

func runGenerate(cmd *cobra.Command, opts *globalOptions, rootArg, manifestArg string) error {
	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}
	root, manifestPath, err := resolvePaths(rootArg, manifestArg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var onResult func(xxhverify.Result)
	if !opts.quiet {
		onResult = func(r xxhverify.Result) {
			fmt.Fprintln(out, xxhverify.FormatLine(r.Path, r.Digest))
		}
	}

	genOpts, err := settings.GenerateOptions(onResult)
	if err != nil {
		return err
	}

	manifest, stats, err := xxhverify.Generate(cmd.Context(), root, manifestPath, genOpts)
	if err != nil {
		return err
	}

	xxhverify.VerboseLog(1, "Run %s: wrote %d entries to %s (peak %d concurrent hashes)",
		stats.RunID, manifest.Len(), manifestPath, stats.PeakAdmitted)
	return nil
}
