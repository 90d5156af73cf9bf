package gateways

import (
	"context"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

// SourcePreparer materializes a scannable source tree for a source package.
// The returned tree is owned by the caller, who must Remove it exactly once.
type SourcePreparer interface {
	Prepare(ctx context.Context, pkg *entities.Package, workdir string) (*entities.SourceTree, error)
}

// ContentScanner finds pattern violations in text files
type ContentScanner interface {
	// ScanTree walks a prepared source tree
	ScanTree(ctx context.Context, tree *entities.SourceTree, pkgRoot string, patterns []entities.Pattern) []entities.Violation

	// ScanFile checks a single file shipped directly in the package
	ScanFile(ctx context.Context, path, pkgRoot string, patterns []entities.Pattern) []entities.Violation
}
