package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	xxhverify "github.com/mattkeenan/xxhverify/pkg"
)

// NewCheckCmd creates the check subcommand
func NewCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check ROOT MANIFEST",
		Short: "Verify the files under ROOT against MANIFEST",
		Long: `Re-hash every file recorded in MANIFEST, resolving paths against ROOT.

Each file is printed as "[path | success]", "[path | failure]" or
"[path | missing]" as soon as it is checked. The run stops at the first
failure or missing file unless --keep-going is given. Files present under
ROOT but absent from MANIFEST are not reported.

Symlinked directories are not descended when a manifest is generated, so
files reached only through one are never recorded or checked.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args[0], args[1])
		},
	}
}

// lineReporter prints one bracketed line per checked file
type lineReporter struct {
	w io.Writer
}

func (lr lineReporter) Report(r xxhverify.FileResult) {
	fmt.Fprintf(lr.w, "%s%s%s%s%s\n", xxhverify.LineOpen, r.Path, xxhverify.LineSeparator, r.Outcome, xxhverify.LineClose)
}

func runCheck(cmd *cobra.Command, opts *globalOptions, rootArg, manifestArg string) error {
	settings, err := loadSettings(cmd, opts)
	if err != nil {
		return err
	}
	root, manifestPath, err := resolvePaths(rootArg, manifestArg)
	if err != nil {
		return err
	}

	var reporter xxhverify.Reporter
	if !opts.quiet {
		reporter = lineReporter{w: cmd.OutOrStdout()}
	}

	report, err := xxhverify.CheckManifest(cmd.Context(), root, manifestPath, settings.CheckOptions(reporter))
	if report != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), report.Summary())
	}
	return err
}
