// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

// PeerRepository defines the interface for loading the packages to compare
type PeerRepository interface {
	// LoadPackages reads every package below dir
	LoadPackages(ctx context.Context, dir string) ([]*entities.Package, error)

	// LoadPeers pairs the packages below the before and after directories.
	// An empty beforeDir yields peers with no before package.
	LoadPeers(ctx context.Context, beforeDir, afterDir string) ([]*entities.PeerSet, error)
}

// ConfigRepository defines the interface for loading run configuration
type ConfigRepository interface {
	// LoadConfig reads the configuration file, or returns defaults for ""
	LoadConfig(path string) (*entities.Config, error)
}
