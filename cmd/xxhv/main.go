package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/charmbracelet/fang"

	xxhverify "github.com/mattkeenan/xxhverify/pkg"
)

// Exit codes
const (
	exitOK                 = 0
	exitToolError          = 1 // argument, config, I/O or manifest parse error
	exitVerificationFailed = 2 // a file was modified or missing
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	ctx, stop := setupSignalHandler(ctx)
	defer stop()

	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := fang.Execute(ctx, rootCmd,
		fang.WithVersion(GetFullVersion()),
		fang.WithoutManpage(),
	)
	return exitCode(err)
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, xxhverify.ErrVerificationFailed):
		return exitVerificationFailed
	default:
		return exitToolError
	}
}
