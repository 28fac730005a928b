package main

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Set by build flags, e.g. -ldflags "-X main.Version=v1.2.0"
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GetVersion returns the version string, preferring compile-time version if available
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return "development"
}

// buildSetting returns a vcs setting from the embedded build info
func buildSetting(key, fallback string) string {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == key {
				return setting.Value
			}
		}
	}
	return fallback
}

// GetCommit returns the git commit hash
func GetCommit() string {
	if Commit != "unknown" && Commit != "" {
		return Commit
	}
	return buildSetting("vcs.revision", "unknown")
}

// GetBuildDate returns the build date
func GetBuildDate() string {
	if Date != "unknown" && Date != "" {
		return Date
	}
	return buildSetting("vcs.time", "unknown")
}

// GetFullVersion returns a formatted version string with commit and date
func GetFullVersion() string {
	version, commit, date := GetVersion(), GetCommit(), GetBuildDate()
	if commit != "unknown" && len(commit) > 7 {
		if date != "unknown" {
			return fmt.Sprintf("%s (%s, built %s)", version, commit[:7], date)
		}
		return fmt.Sprintf("%s (%s)", version, commit[:7])
	}
	return version
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "xxhv version %s\n", GetFullVersion())
	fmt.Fprintf(w, "Commit: %s\n", GetCommit())
	fmt.Fprintf(w, "Build Date: %s\n", GetBuildDate())
}

// NewVersionCmd creates the version subcommand
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}
