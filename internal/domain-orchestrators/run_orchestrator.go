package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/gateways"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/repositories"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
)

// RunOrchestrator coordinates a complete inspection run
type RunOrchestrator struct {
	peerRepo    repositories.PeerRepository
	fetcher     gateways.Fetcher
	extractor   gateways.Extractor
	policy      services.PolicyService
	driver      *InspectionDriver
	inspections map[string]services.Inspection
	logger      interfaces.Logger
	verbose     bool
	keepWorkDir bool
}

// RunOrchestratorConfig holds configuration for the orchestrator
type RunOrchestratorConfig struct {
	Verbose     bool
	KeepWorkDir bool
}

// NewRunOrchestrator creates a new run orchestrator
func NewRunOrchestrator(
	peerRepo repositories.PeerRepository,
	fetcher gateways.Fetcher,
	extractor gateways.Extractor,
	policy services.PolicyService,
	driver *InspectionDriver,
	inspections []services.Inspection,
	logger interfaces.Logger,
	config RunOrchestratorConfig,
) *RunOrchestrator {
	registry := make(map[string]services.Inspection, len(inspections))
	for _, inspection := range inspections {
		registry[inspection.Name()] = inspection
	}

	return &RunOrchestrator{
		peerRepo:    peerRepo,
		fetcher:     fetcher,
		extractor:   extractor,
		policy:      policy,
		driver:      driver,
		inspections: registry,
		logger:      interfaces.OrNoOp(logger),
		verbose:     config.Verbose,
		keepWorkDir: config.KeepWorkDir,
	}
}

// RunRequest names the builds to compare. Each side is either one local
// directory of package directories, or a list of package bundle archives
// given as URLs or local files.
type RunRequest struct {
	Before      []string
	After       []string
	Inspections []string // overrides the configured list when set
}

// InspectionOutcome is the pass/fail state of one inspection
type InspectionOutcome struct {
	Name   string
	Passed bool
}

// RunResult contains the result of an inspection run
type RunResult struct {
	RunID         string
	Report        *entities.Report
	Outcomes      []InspectionOutcome
	Peers         int
	FinalSeverity entities.Severity
	Passed        bool
	FetchDuration time.Duration
	TotalDuration time.Duration
}

// Run executes the complete inspection workflow
func (o *RunOrchestrator) Run(ctx context.Context, cfg *entities.Config, req RunRequest) (*RunResult, error) {
	startTime := time.Now()

	names := req.Inspections
	if len(names) == 0 {
		names = cfg.Inspections
	}
	plugins, err := o.resolveInspections(names)
	if err != nil {
		return nil, err
	}

	if len(req.After) == 0 {
		return nil, fmt.Errorf("no after build given")
	}

	runID := uuid.NewString()
	result := &RunResult{
		RunID:  runID,
		Report: entities.NewReport(runID),
	}

	// Step 1: Create the per-run work directory
	runDir := filepath.Join(cfg.WorkDir, "run-"+runID)
	if err := os.MkdirAll(runDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer o.cleanup(runDir)

	// Step 2: Obtain the before and after package directories
	fetchStart := time.Now()
	beforeDir, err := o.resolveSide(ctx, runDir, "before", req.Before)
	if err != nil {
		return nil, err
	}
	afterDir, err := o.resolveSide(ctx, runDir, "after", req.After)
	if err != nil {
		return nil, err
	}
	result.FetchDuration = time.Since(fetchStart)

	// Step 3: Pair packages into peers
	peers, err := o.peerRepo.LoadPeers(ctx, beforeDir, afterDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	result.Peers = len(peers)
	o.logger.Info("loaded peers", interfaces.F("run", runID), interfaces.F("peers", len(peers)))

	// Step 4: Run each inspection in order
	runCfg := *cfg
	runCfg.WorkDir = runDir
	ic := &services.InspectionContext{
		Config: &runCfg,
		Report: result.Report,
		Logger: o.logger,
		Policy: o.policy,
	}

	for _, plugin := range plugins {
		passed := o.driver.Run(ctx, ic, peers, plugin)
		result.Outcomes = append(result.Outcomes, InspectionOutcome{Name: plugin.Name(), Passed: passed})
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("inspection %s interrupted: %w", plugin.Name(), err)
		}
	}

	// Step 5: Combine results
	result.FinalSeverity = o.policy.FinalSeverity(result.Report)
	result.Passed = !o.policy.ShouldFail(result.Report, cfg.FailThreshold)
	result.TotalDuration = time.Since(startTime)
	return result, nil
}

// Fetch downloads jobs into place without running any inspection
func (o *RunOrchestrator) Fetch(ctx context.Context, jobs []*entities.FetchJob) error {
	return o.fetcher.FetchMany(ctx, jobs, o.verbose)
}

func (o *RunOrchestrator) resolveInspections(names []string) ([]services.Inspection, error) {
	plugins := make([]services.Inspection, 0, len(names))
	for _, name := range names {
		plugin, ok := o.inspections[name]
		if !ok {
			return nil, fmt.Errorf("unknown inspection %q", name)
		}
		plugins = append(plugins, plugin)
	}
	return plugins, nil
}

// resolveSide returns a directory holding one build's package directories.
// A single local directory is used in place; anything else is fetched
// and extracted below runDir.
func (o *RunOrchestrator) resolveSide(ctx context.Context, runDir, side string, sources []string) (string, error) {
	if len(sources) == 0 {
		return "", nil
	}
	if len(sources) == 1 && !isURL(sources[0]) {
		if info, err := os.Stat(sources[0]); err == nil && info.IsDir() {
			return sources[0], nil
		}
	}

	sideDir := filepath.Join(runDir, side)
	downloads := filepath.Join(runDir, side+"-downloads")

	archives := make([]string, 0, len(sources))
	jobs := make([]*entities.FetchJob, 0, len(sources))
	for i, src := range sources {
		if !isURL(src) {
			archives = append(archives, src)
			continue
		}
		dest := filepath.Join(downloads, fmt.Sprintf("%03d-%s", i, urlBase(src)))
		jobs = append(jobs, &entities.FetchJob{URL: src, Dest: dest})
	}

	if len(jobs) > 0 {
		if err := o.fetcher.FetchMany(ctx, jobs, o.verbose); err != nil {
			o.logger.Warn("some downloads failed", interfaces.F("side", side), interfaces.F("error", err))
		}
		for _, job := range jobs {
			if job.Status == entities.FetchDone {
				archives = append(archives, job.Dest)
			}
		}
	}

	if len(archives) == 0 {
		return "", fmt.Errorf("no %s packages could be obtained", side)
	}

	if err := os.MkdirAll(sideDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", side, err)
	}

	// Every bundle gets its own staging directory so links planted by one
	// bundle are never followed by the next
	var errs []error
	extracted := 0
	for i, archive := range archives {
		stage := filepath.Join(runDir, side+"-bundles", fmt.Sprintf("%03d", i))
		if err := os.MkdirAll(stage, 0750); err != nil {
			return "", fmt.Errorf("failed to create staging directory: %w", err)
		}
		err := o.extractor.Extract(archive, stage)
		if err == nil {
			err = mergeBundle(stage, sideDir)
		}
		if err != nil {
			o.logger.Warn("failed to extract package bundle", interfaces.F("archive", archive), interfaces.F("error", err))
			errs = append(errs, err)
			continue
		}
		extracted++
	}
	if extracted == 0 {
		return "", fmt.Errorf("no %s package bundle could be extracted: %w", side, errors.Join(errs...))
	}

	return sideDir, nil
}

// mergeBundle moves the top-level entries of an extracted bundle into
// sideDir. Top-level symlinks are dropped, and a name already provided by an
// earlier bundle rejects the whole bundle.
func mergeBundle(stage, sideDir string) error {
	entries, err := os.ReadDir(stage)
	if err != nil {
		return fmt.Errorf("failed to read extracted bundle: %w", err)
	}

	moves := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if _, err := os.Lstat(filepath.Join(sideDir, entry.Name())); err == nil {
			return fmt.Errorf("%s already provided by an earlier bundle", entry.Name())
		}
		moves = append(moves, entry.Name())
	}

	for _, name := range moves {
		if err := os.Rename(filepath.Join(stage, name), filepath.Join(sideDir, name)); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", name, err)
		}
	}

	return nil
}

func (o *RunOrchestrator) cleanup(runDir string) {
	if o.keepWorkDir {
		o.logger.Info("keeping work directory", interfaces.F("path", runDir))
		return
	}
	if err := os.RemoveAll(runDir); err != nil {
		o.logger.Warn("failed to remove work directory", interfaces.F("path", runDir), interfaces.F("error", err))
	}
}

// isURL reports whether s names a remote http(s) resource
func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func urlBase(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return "bundle"
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return "bundle"
	}
	return base
}

// GetRunSummary returns a human-readable summary of the run
func (r *RunResult) GetRunSummary() string {
	status := "PASSED"
	if !r.Passed {
		status = "FAILED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Inspection %s
Run: %s
Peers: %d
Final severity: %s
Fetch: %v
Total: %v`,
		status,
		r.RunID,
		r.Peers,
		r.FinalSeverity,
		r.FetchDuration,
		r.TotalDuration,
	)

	for _, outcome := range r.Outcomes {
		mark := "ok"
		if !outcome.Passed {
			mark = "failed"
		}
		fmt.Fprintf(&b, "\n  %s: %s", outcome.Name, mark)
	}

	return b.String()
}
