package gateways

import (
	"context"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

// Fetcher retrieves remote package files
type Fetcher interface {
	// FetchOne downloads url to dest, removing dest on any failure
	FetchOne(ctx context.Context, url, dest string, verbose bool) error

	// FetchMany downloads every job concurrently. One job failing does not
	// stop or roll back the others; the returned error joins all failures.
	FetchMany(ctx context.Context, jobs []*entities.FetchJob, verbose bool) error
}

// ArtifactVerifier checks a fetched file before it is accepted
type ArtifactVerifier interface {
	Verify(ctx context.Context, job *entities.FetchJob) error
}

// Extractor unpacks an archive into a directory
type Extractor interface {
	Extract(archivePath, destDir string) error
}
