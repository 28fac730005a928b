package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	xxhverify "github.com/mattkeenan/xxhverify/pkg"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	configPath string
	overrides  []string
	verbose    int
	debug      string
	workers    int
	buffer     string
	ignore     []string
	malformed  string
	keepGoing  bool
	quiet      bool
}

// NewRootCmd creates the root command. Besides the generate and check
// subcommands it accepts -g and -c with ROOT MANIFEST directly.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	var generateMode, checkMode bool

	rootCmd := &cobra.Command{
		Use:   "xxhv [-g|-c] ROOT MANIFEST",
		Short: "Fingerprint a directory tree with XXH3-128 and verify it later",
		Long: `xxhv computes a 128-bit XXH3 digest of every file under ROOT and records
them in MANIFEST, one "[relative/path | hex]" line per file. Checking re-hashes
every recorded file and reports success, failure or missing for each.

Exit status is 0 when everything matched, 2 when a file was modified or
missing, and 1 for any other error.`,
		Version: GetFullVersion(),
		Args: func(cmd *cobra.Command, args []string) error {
			if !generateMode && !checkMode {
				return cobra.NoArgs(cmd, args)
			}
			if generateMode && checkMode {
				return fmt.Errorf("-g and -c cannot be used together")
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case generateMode:
				return runGenerate(cmd, opts, args[0], args[1])
			case checkMode:
				return runCheck(cmd, opts, args[0], args[1])
			default:
				return cmd.Help()
			}
		},
	}

	rootCmd.Flags().BoolVarP(&generateMode, "generate", "g", false, "Generate MANIFEST for ROOT")
	rootCmd.Flags().BoolVarP(&checkMode, "check", "c", false, "Check ROOT against MANIFEST")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (created with defaults if missing)")
	pf.StringArrayVar(&opts.overrides, "set", nil, "Override a config key, as key:value (repeatable)")
	pf.CountVarP(&opts.verbose, "verbose", "v", "Verbose output to stderr (repeat for more, up to -vvv)")
	pf.StringVar(&opts.debug, "debug", "", "Comma-separated debug flags (scan,hash,manifest,verify,schedule)")
	pf.IntVarP(&opts.workers, "workers", "j", 0, "Files hashed concurrently (default 16)")
	pf.StringVar(&opts.buffer, "buffer", "", "Hash read buffer size, e.g. 32K or 1M")
	pf.StringArrayVar(&opts.ignore, "ignore", nil, "Regular expression of relative paths to skip (repeatable)")
	pf.StringVar(&opts.malformed, "malformed", "", "Malformed manifest lines: error, warn or skip")
	pf.BoolVar(&opts.keepGoing, "keep-going", false, "Report every modified or missing file instead of stopping at the first")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print per-file lines")

	rootCmd.AddCommand(NewGenerateCmd(opts))
	rootCmd.AddCommand(NewCheckCmd(opts))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// loadSettings merges the config file, --set overrides and explicit flags,
// in that order, and initialises logging
func loadSettings(cmd *cobra.Command, opts *globalOptions) (*xxhverify.Settings, error) {
	cfg := xxhverify.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = xxhverify.LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyOverrides(opts.overrides); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	explicit := []struct {
		flag, key string
		value     func() string
	}{
		{"workers", "hash_workers", func() string { return strconv.Itoa(opts.workers) }},
		{"buffer", "buffer_size", func() string { return opts.buffer }},
		{"malformed", "malformed_lines", func() string { return opts.malformed }},
		{"keep-going", "fail_fast", func() string { return strconv.FormatBool(!opts.keepGoing) }},
		{"verbose", "level", func() string { return strconv.Itoa(min(opts.verbose, 3)) }},
		{"debug", "debug", func() string { return opts.debug }},
	}
	for _, e := range explicit {
		if flags.Changed(e.flag) {
			if err := cfg.Set(e.key, e.value()); err != nil {
				return nil, err
			}
		}
	}

	settings, err := xxhverify.SettingsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	settings.IgnorePatterns = opts.ignore
	settings.InitLogging()
	return settings, nil
}

// resolvePaths makes ROOT and MANIFEST absolute
func resolvePaths(rootArg, manifestArg string) (string, string, error) {
	root, err := xxhverify.ResolvePath(rootArg)
	if err != nil {
		return "", "", err
	}
	manifest, err := xxhverify.ResolvePath(manifestArg)
	if err != nil {
		return "", "", err
	}
	return root, manifest, nil
}
