package main

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	digest "github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

type fetchOptions struct {
	dest       string
	digests    []string
	signatures []string
	check      bool
}

func newFetchCmd(global *globalOptions) *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Download package bundles concurrently",
		Long: `Download package bundles concurrently into a directory.

A failed download never stops the others; its partial file is removed.
--digest and --signature are matched to URLs by position.`,
		Example: `  pkginspect fetch https://builds.example.com/42/a.tar.gz --dest ./downloads
  pkginspect fetch https://builds.example.com/42/a.tar.gz --digest sha256:0d6a... --verbose
  pkginspect fetch https://builds.example.com/42/a.tar.gz --check`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, global, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.dest, "dest", "d", ".", "Destination directory")
	cmd.Flags().StringSliceVar(&opts.digests, "digest", nil, "Expected digest per URL, e.g. sha256:<hex>")
	cmd.Flags().StringSliceVar(&opts.signatures, "signature", nil, "Detached OpenPGP signature (URL or local file) per URL")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Only report whether each URL is reachable and its size")

	return cmd
}

func runFetch(cmd *cobra.Command, global *globalOptions, opts *fetchOptions, urls []string) error {
	if len(opts.digests) > len(urls) || len(opts.signatures) > len(urls) {
		return usageError("more --digest or --signature values than URLs")
	}

	a, err := newApp(global, cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}

	if opts.check {
		return checkRemote(cmd, a, urls)
	}

	jobs, err := fetchJobs(urls, opts)
	if err != nil {
		return err
	}

	err = a.orchestrator.Fetch(cmd.Context(), jobs)
	for _, job := range jobs {
		if job.Status == entities.FetchDone {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", job.Dest, job.Written)
		}
	}
	if err != nil {
		return fmt.Errorf("some downloads failed: %w", err)
	}
	return nil
}

func fetchJobs(urls []string, opts *fetchOptions) ([]*entities.FetchJob, error) {
	jobs := make([]*entities.FetchJob, 0, len(urls))
	for i, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, usageError("not an http(s) URL: %s", raw)
		}

		name := path.Base(u.Path)
		if name == "/" || name == "." {
			return nil, usageError("URL has no file name: %s", raw)
		}

		job := &entities.FetchJob{URL: raw, Dest: filepath.Join(opts.dest, name)}
		if i < len(opts.digests) && opts.digests[i] != "" {
			d, err := digest.Parse(opts.digests[i])
			if err != nil {
				return nil, usageError("--digest %s: %v", opts.digests[i], err)
			}
			job.Digest = d
		}
		if i < len(opts.signatures) {
			job.SignatureURL = opts.signatures[i]
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func checkRemote(cmd *cobra.Command, a *app, urls []string) error {
	unreachable := 0
	for _, u := range urls {
		if !a.fetcher.IsRemotePackage(cmd.Context(), u) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s unreachable\n", u)
			unreachable++
			continue
		}
		size, err := a.fetcher.Size(cmd.Context(), u)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", u, size)
	}
	if unreachable > 0 {
		return fmt.Errorf("%d of %d URLs unreachable", unreachable, len(urls))
	}
	return nil
}
