package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/pkginspect/internal/domain-orchestrators"
	"github.com/ochairo/pkginspect/internal/domain/entities"
)

type inspectOptions struct {
	before      []string
	after       []string
	inspections []string
	threshold   string
	suppress    string
	format      string
	output      string
	rebase      bool
	keepWorkDir bool
}

func newInspectCmd(global *globalOptions) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run inspections on an after build, optionally against a before build",
		Long: `Run inspections on an after build, optionally against a before build.

Each build is either a directory of package directories (each holding a
package.yaml manifest) or one or more package bundle archives given as
http(s) URLs or local files.

Exit status is 0 when the run passes, 1 when a finding reaches the fail
threshold, and 2 on errors.`,
		Example: `  pkginspect inspect --before ./build-41 --after ./build-42
  pkginspect inspect --after ./build-42 --inspection unicode --format json
  pkginspect inspect --after https://builds.example.com/42/a.tar.gz --after https://builds.example.com/42/b.tar.gz`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, global, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.before, "before", "b", nil, "Before build: directory, bundle URL or bundle file (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.after, "after", "a", nil, "After build: directory, bundle URL or bundle file (repeatable)")
	cmd.Flags().StringSliceVarP(&opts.inspections, "inspection", "i", nil, "Inspections to run (default from config)")
	cmd.Flags().StringVar(&opts.threshold, "threshold", "", "Fail at or above this severity (OK, INFO, VERIFY, BAD)")
	cmd.Flags().StringVar(&opts.suppress, "suppress", "", "Hide results below this severity")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format (text, json)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.rebase, "rebase", false, "Treat the after build as an upstream rebase")
	cmd.Flags().BoolVar(&opts.keepWorkDir, "keep-workdir", false, "Do not remove the run's work directory")

	return cmd
}

func runInspect(cmd *cobra.Command, global *globalOptions, opts *inspectOptions) error {
	if len(opts.after) == 0 {
		return usageError("--after is required")
	}
	if opts.format != formatText && opts.format != formatJSON {
		return usageError("unknown format %q", opts.format)
	}

	a, err := newApp(global, cmd.ErrOrStderr(), opts.keepWorkDir)
	if err != nil {
		return err
	}

	if err := applyInspectOverrides(a.cfg, opts); err != nil {
		return err
	}

	result, err := a.orchestrator.Run(cmd.Context(), a.cfg, orchestrators.RunRequest{
		Before:      opts.before,
		After:       opts.after,
		Inspections: opts.inspections,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output != "" {
		//nolint:gosec // G304: output path is chosen by the user
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := writeReport(out, opts.format, a, result); err != nil {
		return err
	}

	if global.verbose {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), result.GetRunSummary())
	}

	if !result.Passed {
		return errInspectionFailed
	}
	return nil
}

func applyInspectOverrides(cfg *entities.Config, opts *inspectOptions) error {
	if opts.threshold != "" {
		s, err := entities.ParseSeverity(opts.threshold)
		if err != nil {
			return usageError("--threshold: %v", err)
		}
		cfg.FailThreshold = s
	}
	if opts.suppress != "" {
		s, err := entities.ParseSeverity(opts.suppress)
		if err != nil {
			return usageError("--suppress: %v", err)
		}
		cfg.Suppress = s
	}
	if opts.rebase {
		cfg.Rebase = true
	}
	return nil
}

func writeReport(w io.Writer, format string, a *app, result *orchestrators.RunResult) error {
	if format == formatJSON {
		return renderJSON(w, a.policy.Visible(result.Report, a.cfg.Suppress), result)
	}
	return renderLint(w, a.policy.Visible(result.Report, a.cfg.Suppress))
}
