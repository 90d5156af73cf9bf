// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/gateways"
)

const (
	maxRedirects = 10
	userAgent    = "pkginspect/1.0"
)

// Fetcher downloads package bundles over HTTP(S)
type Fetcher struct {
	httpClient *http.Client
	config     entities.FetchConfig
	verifier   gateways.ArtifactVerifier
	logger     interfaces.Logger
	out        *os.File
}

// NewFetcher creates a fetcher. verifier may be nil to skip post-transfer checks.
func NewFetcher(config entities.FetchConfig, verifier gateways.ArtifactVerifier, logger interfaces.Logger) *Fetcher {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.PollTimeout <= 0 {
		config.PollTimeout = time.Second
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = 100 * time.Millisecond
	}

	return &Fetcher{
		httpClient: &http.Client{
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		config:   config,
		verifier: verifier,
		logger:   interfaces.OrNoOp(logger),
		out:      os.Stderr,
	}
}

// progressEvent is sent by a transfer to the polling loop
type progressEvent struct {
	total int64
	n     int64
}

// FetchOne downloads url to dest. dest is removed on any failure.
func (f *Fetcher) FetchOne(ctx context.Context, rawURL, dest string, verbose bool) error {
	job := &entities.FetchJob{URL: rawURL, Dest: dest}

	var bar *ProgressBar
	if verbose {
		bar = f.startProgress(filepath.Base(dest), []*entities.FetchJob{job})
	}

	f.runJob(ctx, job, func(ev progressEvent) {
		bar.Grow(ev.total)
		bar.Add(ev.n)
		bar.Tick()
	})
	bar.Close()

	if job.Status == entities.FetchFailed {
		f.discard(job)
		return job.Err
	}

	return nil
}

// FetchMany downloads every job concurrently. Each job ends in FetchDone
// or FetchFailed independently; failed jobs have their destination removed
// and are joined into the returned error.
func (f *Fetcher) FetchMany(ctx context.Context, jobs []*entities.FetchJob, verbose bool) error {
	if len(jobs) == 0 {
		return nil
	}

	var bar *ProgressBar
	if verbose {
		label := fmt.Sprintf("%d files", len(jobs))
		if len(jobs) == 1 {
			label = filepath.Base(jobs[0].Dest)
		}
		bar = f.startProgress(label, jobs)
	}

	events := make(chan progressEvent, len(jobs))
	done := make(chan struct{})

	go func() {
		var g errgroup.Group
		g.SetLimit(f.config.Workers)
		for _, job := range jobs {
			g.Go(func() error {
				f.runJob(ctx, job, func(ev progressEvent) { events <- ev })
				// failures stay on the job so the others keep running
				return nil
			})
		}
		_ = g.Wait()
		close(done)
	}()

	f.poll(events, done, bar)
	bar.Close()

	var errs []error
	for _, job := range jobs {
		if job.Status != entities.FetchDone {
			f.discard(job)
			errs = append(errs, job.Err)
		}
	}

	return errors.Join(errs...)
}

// poll consumes progress until every transfer has finished. Each wait is
// bounded by the poll timeout; once more than one wait in a row saw no
// activity the loop also sleeps the idle interval instead of spinning.
func (f *Fetcher) poll(events <-chan progressEvent, done <-chan struct{}, bar *ProgressBar) {
	apply := func(ev progressEvent) {
		bar.Grow(ev.total)
		bar.Add(ev.n)
	}

	emptyPolls := 0
	for {
		select {
		case ev := <-events:
			emptyPolls = 0
			apply(ev)
			bar.Tick()

		case <-done:
			for {
				select {
				case ev := <-events:
					apply(ev)
				default:
					bar.Tick()
					return
				}
			}

		case <-time.After(f.config.PollTimeout):
			emptyPolls++
			if emptyPolls > 1 {
				time.Sleep(f.config.IdleInterval)
			}
			bar.Tick()
		}
	}
}

// startProgress returns a bar on an interactive terminal, or prints one
// line per job otherwise
func (f *Fetcher) startProgress(label string, jobs []*entities.FetchJob) *ProgressBar {
	if IsTerminal(f.out) {
		return NewProgressBar(f.out, label)
	}

	for _, job := range jobs {
		_, _ = fmt.Fprintf(f.out, ">>> %s\n", filepath.Base(job.Dest))
	}
	return nil
}

// runJob transfers and verifies one job, recording the outcome on it
func (f *Fetcher) runJob(ctx context.Context, job *entities.FetchJob, report func(progressEvent)) {
	err := f.transfer(ctx, job, report)
	if err == nil && f.verifier != nil {
		err = f.verifier.Verify(ctx, job)
	}

	if err != nil {
		job.Status = entities.FetchFailed
		job.Err = &entities.FetchError{URL: job.URL, Dest: job.Dest, Err: err}
		return
	}

	job.Status = entities.FetchDone
}

// transfer performs the GET and writes the body to job.Dest
func (f *Fetcher) transfer(ctx context.Context, job *entities.FetchJob, report func(progressEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if resp.ContentLength > 0 {
		report(progressEvent{total: resp.ContentLength})
	}

	if err := os.MkdirAll(filepath.Dir(job.Dest), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	//nolint:gosec // G304: File path dest is the job's download destination
	out, err := os.Create(job.Dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(&progressWriter{w: out, report: report}, resp.Body)
	job.Written = written
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// discard removes a failed job's partial output
func (f *Fetcher) discard(job *entities.FetchJob) {
	f.logger.Warn("fetch failed", interfaces.F("url", job.URL), interfaces.F("error", job.Err))

	if err := os.Remove(job.Dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.logger.Warn("failed to remove partial download",
			interfaces.F("path", job.Dest), interfaces.F("error", err))
	}
}

// Size returns the Content-Length a server reports for url, or -1 when
// it does not say
func (f *Fetcher) Size(ctx context.Context, rawURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return resp.ContentLength, nil
}

// IsRemotePackage reports whether s is an HTTP(S) URL the server answers for
func (f *Fetcher) IsRemotePackage(ctx context.Context, s string) bool {
	if !IsRemote(s) {
		return false
	}
	_, err := f.Size(ctx, s)
	return err == nil
}

// IsRemote reports whether s looks like an HTTP(S) URL rather than a path
func IsRemote(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// progressWriter reports every write to the polling loop
type progressWriter struct {
	w      io.Writer
	report func(progressEvent)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.report(progressEvent{n: int64(n)})
	}
	return n, err
}
