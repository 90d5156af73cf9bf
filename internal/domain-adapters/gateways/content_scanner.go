package gateways

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
)

// PathNormalizer maps a scanned file back to where it sits in the
// original source package
type PathNormalizer struct {
	BuildRoot   string // prepared tree root, empty for raw package files
	Manual      bool   // tree came from manual extraction into unpack-* dirs
	PackageRoot string
}

// Normalize strips the build root (and an unpack-* directory for manual
// trees) or the package root from path
func (n PathNormalizer) Normalize(path string) string {
	if n.BuildRoot != "" {
		if rel, ok := relativeTo(n.BuildRoot, path); ok {
			if n.Manual {
				first, rest, found := strings.Cut(rel, string(filepath.Separator))
				if found && strings.HasPrefix(first, entities.UnpackPrefix) {
					return rest
				}
			}
			return rel
		}
	}

	if n.PackageRoot != "" {
		if rel, ok := relativeTo(n.PackageRoot, path); ok {
			return rel
		}
	}

	return path
}

func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// ContentScanner searches text files for forbidden patterns
type ContentScanner struct {
	exclude       *regexp.Regexp
	excludedTypes []string
	logger        interfaces.Logger
}

// NewContentScanner creates a scanner. Files whose normalized path matches
// exclude, or whose content type is in excludedTypes, are skipped. The
// normalized path is relative to the source tree, with any unpack-* directory
// removed, or relative to the package root for raw package files.
func NewContentScanner(exclude *regexp.Regexp, excludedTypes []string, logger interfaces.Logger) *ContentScanner {
	return &ContentScanner{
		exclude:       exclude,
		excludedTypes: excludedTypes,
		logger:        interfaces.OrNoOp(logger),
	}
}

// ScanTree scans every regular file in a prepared source tree. Violations
// come back in file visit order, then line order, then pattern order.
func (s *ContentScanner) ScanTree(
	ctx context.Context,
	tree *entities.SourceTree,
	pkgRoot string,
	patterns []entities.Pattern,
) []entities.Violation {
	if tree == nil || tree.Root == "" {
		return nil
	}

	normalizer := PathNormalizer{
		BuildRoot:   tree.Root,
		Manual:      tree.Method == entities.PrepManual,
		PackageRoot: pkgRoot,
	}

	var violations []entities.Violation
	err := walkFiles(ctx, tree.Root,
		func(path string) {
			violations = append(violations, s.scan(ctx, path, normalizer, patterns)...)
		},
		func(path string, err error) {
			s.logger.Warn("skipping unreadable directory",
				interfaces.F("error", &entities.ScanError{Path: path, Err: err}))
		},
	)
	if err != nil {
		s.logger.Warn("source tree walk stopped", interfaces.F("root", tree.Root), interfaces.F("error", err))
	}

	return violations
}

// ScanFile scans one file shipped directly in the package
func (s *ContentScanner) ScanFile(ctx context.Context, path, pkgRoot string, patterns []entities.Pattern) []entities.Violation {
	return s.scan(ctx, path, PathNormalizer{PackageRoot: pkgRoot}, patterns)
}

func (s *ContentScanner) scan(
	ctx context.Context,
	path string,
	normalizer PathNormalizer,
	patterns []entities.Pattern,
) []entities.Violation {
	if ctx.Err() != nil || len(patterns) == 0 {
		return nil
	}

	localPath := normalizer.Normalize(path)
	if s.exclude != nil && s.exclude.MatchString(localPath) {
		return nil
	}

	contentType, err := DetectContentType(path)
	if err != nil {
		s.logger.Warn("skipping file", interfaces.F("error", &entities.ScanError{Path: path, Err: err}))
		return nil
	}
	if slices.Contains(s.excludedTypes, contentType) || !IsText(contentType) {
		return nil
	}

	//nolint:gosec // G304: path comes from the source tree walk
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("skipping file", interfaces.F("error", &entities.ScanError{Path: path, Err: err}))
		return nil
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	var violations []entities.Violation
	lines := NewLineReader(f)
	for {
		line, ok, err := lines.Next()
		if err != nil {
			s.logger.Warn("stopped reading file", interfaces.F("error", &entities.ScanError{Path: path, Err: err}))
			break
		}
		if !ok {
			break
		}

		for _, pattern := range patterns {
			if col := pattern.Find(line); col >= 0 {
				violations = append(violations, entities.Violation{
					Path:     localPath,
					FullPath: path,
					Line:     lines.Line(),
					Column:   col,
					Pattern:  pattern,
				})
			}
		}
	}

	return violations
}
