package yaml

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
)

// PeerRepository implements repositories.PeerRepository over directories
// of package directories, each holding a package.yaml manifest
type PeerRepository struct {
	reader *HeaderReader
	logger interfaces.Logger
}

// NewPeerRepository creates a new manifest-based peer repository
func NewPeerRepository(logger interfaces.Logger) *PeerRepository {
	return &PeerRepository{
		reader: NewHeaderReader(),
		logger: interfaces.OrNoOp(logger),
	}
}

// LoadPackages reads dir itself if it holds a manifest, otherwise every
// immediate subdirectory that does. Unparsable manifests are skipped.
func (r *PeerRepository) LoadPackages(ctx context.Context, dir string) ([]*entities.Package, error) {
	if _, err := os.Stat(filepath.Join(dir, ManifestFile)); err == nil {
		pkg, err := r.loadPackage(dir)
		if err != nil {
			return nil, err
		}
		return []*entities.Package{pkg}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read package directory: %w", err)
	}

	packages := make([]*entities.Package, 0)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}

		pkgDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(pkgDir, ManifestFile)); err != nil {
			continue
		}

		pkg, err := r.loadPackage(pkgDir)
		if err != nil {
			r.logger.Warn("skipping package", interfaces.F("dir", pkgDir), interfaces.F("error", err))
			continue
		}
		packages = append(packages, pkg)
	}

	return packages, nil
}

// LoadPeers pairs packages by name and architecture. Peers follow the
// order of the after packages; before packages with no after counterpart
// come last with a nil After.
func (r *PeerRepository) LoadPeers(ctx context.Context, beforeDir, afterDir string) ([]*entities.PeerSet, error) {
	var before []*entities.Package
	if beforeDir != "" {
		var err error
		before, err = r.LoadPackages(ctx, beforeDir)
		if err != nil {
			return nil, fmt.Errorf("before: %w", err)
		}
	}

	after, err := r.LoadPackages(ctx, afterDir)
	if err != nil {
		return nil, fmt.Errorf("after: %w", err)
	}

	byKey := make(map[string]*entities.Package, len(before))
	for _, pkg := range before {
		byKey[peerKey(pkg)] = pkg
	}

	peers := make([]*entities.PeerSet, 0, len(after))
	for _, pkg := range after {
		key := peerKey(pkg)
		peers = append(peers, &entities.PeerSet{Before: byKey[key], After: pkg})
		delete(byKey, key)
	}

	for _, pkg := range before {
		if _, gone := byKey[peerKey(pkg)]; gone {
			peers = append(peers, &entities.PeerSet{Before: pkg})
		}
	}

	return peers, nil
}

func peerKey(pkg *entities.Package) string {
	return pkg.Name + "." + pkg.Arch
}

// loadPackage parses the manifest in dir and lists the package's files
func (r *PeerRepository) loadPackage(dir string) (*entities.Package, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	m, err := ParseManifestFile(filepath.Join(root, ManifestFile))
	if err != nil {
		return nil, err
	}

	pkg := &entities.Package{
		Source: r.reader.IsSource(m),
		Arch:   r.reader.Arch(m),
		Root:   root,
		Header: m,
	}
	pkg.Name, _ = r.reader.TagString(m, entities.TagName)
	pkg.Version, _ = r.reader.TagString(m, entities.TagVersion)
	pkg.Release, _ = r.reader.TagString(m, entities.TagRelease)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == ManifestFile {
			return nil
		}
		pkg.Files = append(pkg.Files, entities.PackageFile{LocalPath: rel, FullPath: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", pkg.Name, err)
	}

	return pkg, nil
}
