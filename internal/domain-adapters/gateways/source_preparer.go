package gateways

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/gateways"
)

// Build root layout created for every prepared package
const (
	topDirName   = "rpmbuild"
	buildDirName = "BUILD"
)

var (
	buildRootDirs = []string{buildDirName, "BUILDROOT", "RPMS", "SRPMS"}
	linkedDirs    = []string{"SOURCES", "SPECS"}
)

// SourcePreparer materializes source trees, first by running the
// package's own preparation step and then by unpacking its sources
type SourcePreparer struct {
	command   []string
	runner    *CommandRunner
	extractor gateways.Extractor
	reader    gateways.HeaderReader
	logger    interfaces.Logger
}

// NewSourcePreparer creates a preparer. command is an argv template in
// which {topdir}, {spec} and {builddir} are substituted.
func NewSourcePreparer(
	command []string,
	runner *CommandRunner,
	extractor gateways.Extractor,
	reader gateways.HeaderReader,
	logger interfaces.Logger,
) *SourcePreparer {
	return &SourcePreparer{
		command:   command,
		runner:    runner,
		extractor: extractor,
		reader:    reader,
		logger:    interfaces.OrNoOp(logger),
	}
}

// Prepare returns a source tree for pkg below workdir. On error nothing is
// left behind; on success the caller owns the tree and must Remove it.
func (p *SourcePreparer) Prepare(ctx context.Context, pkg *entities.Package, workdir string) (*entities.SourceTree, error) {
	if err := os.MkdirAll(workdir, 0750); err != nil {
		return nil, &entities.PrepError{Package: pkg.NVR(), Err: fmt.Errorf("failed to create workdir: %w", err)}
	}

	base, err := os.MkdirTemp(workdir, "prep-*")
	if err != nil {
		return nil, &entities.PrepError{Package: pkg.NVR(), Err: fmt.Errorf("failed to create build root: %w", err)}
	}
	tree := &entities.SourceTree{Base: base}

	topdir, err := p.buildRoot(base, pkg.Root)
	if err != nil {
		_ = tree.Remove()
		return nil, &entities.PrepError{Package: pkg.NVR(), Err: err}
	}
	build := filepath.Join(topdir, buildDirName)

	details, primaryErr := p.runPrep(ctx, pkg, topdir, build)
	if primaryErr == nil {
		tree.Root = build
		tree.Method = entities.PrepBuildStep
		tree.Details = details
		return tree, nil
	}

	p.logger.Debug("preparation step failed, unpacking sources manually",
		interfaces.F("package", pkg.NVR()), interfaces.F("error", primaryErr))

	// discard whatever the failed step left behind
	if err := resetDir(build); err != nil {
		_ = tree.Remove()
		return nil, &entities.PrepError{Package: pkg.NVR(), Details: details, Err: errors.Join(primaryErr, err)}
	}

	if err := p.unpackSources(pkg, build); err != nil {
		_ = tree.Remove()
		return nil, &entities.PrepError{
			Package: pkg.NVR(),
			Details: details,
			Err:     errors.Join(primaryErr, err),
		}
	}

	tree.Root = build
	tree.Method = entities.PrepManual
	tree.Details = details
	return tree, nil
}

// buildRoot creates the build directories under base and links the
// package directory in as both SOURCES and SPECS
func (p *SourcePreparer) buildRoot(base, pkgRoot string) (string, error) {
	topdir := filepath.Join(base, topDirName)

	for _, dir := range buildRootDirs {
		if err := os.MkdirAll(filepath.Join(topdir, dir), 0750); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	root, err := filepath.Abs(pkgRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve package root: %w", err)
	}
	for _, dir := range linkedDirs {
		if err := os.Symlink(root, filepath.Join(topdir, dir)); err != nil {
			return "", fmt.Errorf("failed to link %s: %w", dir, err)
		}
	}

	return topdir, nil
}

// runPrep drives the package's preparation step and returns its output
func (p *SourcePreparer) runPrep(ctx context.Context, pkg *entities.Package, topdir, build string) (string, error) {
	spec, ok := pkg.SpecFile()
	if !ok {
		return "", entities.ErrNoSpecFile
	}
	if len(p.command) == 0 || p.runner == nil {
		return "", fmt.Errorf("no preparation command configured")
	}

	replacer := strings.NewReplacer(
		"{topdir}", topdir,
		"{spec}", filepath.Join(topdir, "SPECS", spec.LocalPath),
		"{builddir}", build,
	)
	args := make([]string, len(p.command))
	for i, arg := range p.command {
		args[i] = replacer.Replace(arg)
	}

	result := p.runner.Run(ctx, RunConfig{Args: args, WorkingDir: topdir})
	if !result.Success {
		return result.Output, fmt.Errorf("preparation step exited %d: %w", result.ExitCode, result.Error)
	}

	return result.Output, nil
}

// unpackSources extracts every declared non-text source into its own
// unpack-* directory under build. Failures are tolerated per source; the
// fallback as a whole fails only when sources were attempted and none
// could be extracted.
func (p *SourcePreparer) unpackSources(pkg *entities.Package, build string) error {
	if p.reader == nil || p.extractor == nil {
		return fmt.Errorf("no source extractor configured")
	}

	sources := p.reader.TagStrings(pkg.Header, entities.TagSource)
	if len(sources) == 0 {
		return entities.ErrNoSources
	}

	attempted, extracted := 0, 0
	for _, name := range sources {
		path := filepath.Join(pkg.Root, filepath.Base(name))

		contentType, err := DetectContentType(path)
		if err != nil {
			p.logger.Warn("cannot read source", interfaces.F("source", path), interfaces.F("error", err))
			continue
		}
		if IsText(contentType) {
			continue
		}

		attempted++
		dest, err := os.MkdirTemp(build, entities.UnpackPrefix+"*")
		if err != nil {
			return fmt.Errorf("failed to create unpack directory: %w", err)
		}

		if err := p.extractor.Extract(path, dest); err != nil {
			p.logger.Warn("failed to unpack source",
				interfaces.F("source", path), interfaces.F("type", contentType), interfaces.F("error", err))
			if rmErr := os.RemoveAll(dest); rmErr != nil {
				p.logger.Warn("failed to remove unpack directory", interfaces.F("path", dest), interfaces.F("error", rmErr))
			}
			continue
		}
		extracted++
	}

	if attempted > 0 && extracted == 0 {
		return fmt.Errorf("none of %d source archives could be unpacked", attempted)
	}

	return nil
}

// resetDir replaces dir with an empty directory
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}
