package entities

import (
	"errors"
	"fmt"
)

var (
	ErrNoSpecFile         = errors.New("no spec file in source package")
	ErrUnsupportedArchive = errors.New("unsupported archive format")
	ErrDigestMismatch     = errors.New("digest mismatch")
	ErrNoSources          = errors.New("package declares no sources")
	ErrSymlinkInPath      = errors.New("archive entry path passes through a symlink")
	ErrEntryTooLarge      = errors.New("archive entry exceeds size limit")
)

// FetchError describes a failed transfer
type FetchError struct {
	URL  string
	Dest string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PrepError means no source tree could be materialized for a package
type PrepError struct {
	Package string
	Details string
	Err     error
}

func (e *PrepError) Error() string {
	return fmt.Sprintf("prepare %s: %v", e.Package, e.Err)
}

func (e *PrepError) Unwrap() error { return e.Err }

// ScanError describes a file the content scanner had to skip
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }
