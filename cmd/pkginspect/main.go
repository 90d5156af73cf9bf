// Package main provides the pkginspect CLI for comparing package builds.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

// Exit codes
const (
	exitPass  = 0
	exitFail  = 1
	exitError = 2
)

// errInspectionFailed signals a completed run whose results fail the policy
var errInspectionFailed = errors.New("inspection failed")

var colorRed = color.New(color.FgRed, color.Bold)

// globalOptions are the flags shared by every command
type globalOptions struct {
	configPath string
	workDir    string
	logLevel   string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and maps the outcome to an exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitPass
	case errors.Is(err, errInspectionFailed):
		return exitFail
	default:
		_, _ = colorRed.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "pkginspect",
		Short: "Compare before and after package builds for policy regressions",
		Long: `pkginspect compares a before build and an after build of a set of
packages and reports policy findings.

Inspections:
  scriptlets  account creation and lost lifecycle scriptlets
  unicode     forbidden code points in prepared source trees

Examples:
  # Inspect a local build against the previous one
  pkginspect inspect --before ./build-41 --after ./build-42

  # Inspect remote package bundles
  pkginspect inspect --after https://builds.example.com/42/packages.tar.gz

  # Show the effective configuration
  pkginspect config --config pkginspect.yaml
`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.workDir, "workdir", "", "Working directory for downloads and prepared sources")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output and debug logging")

	root.AddCommand(newInspectCmd(opts))
	root.AddCommand(newFetchCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

// usageError wraps flag validation failures
func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("invalid usage: "+format, args...)
}
