// Package entities defines core domain models and data structures.
package entities

import "strings"

// Header is an opaque package header handle owned by the metadata reader.
type Header any

// PackageFile is one file contained in a package
type PackageFile struct {
	LocalPath string // path relative to the package root
	FullPath  string // path on disk
}

// Package represents one build artifact (binary or source) to be inspected
type Package struct {
	Name    string
	Version string
	Release string
	Arch    string
	Source  bool
	Root    string // directory the package contents live in
	Header  Header
	Files   []PackageFile
}

// NVR returns name-version-release
func (p *Package) NVR() string {
	return p.Name + "-" + p.Version + "-" + p.Release
}

// IsDebugInfo reports whether the package carries debugging symbols
func (p *Package) IsDebugInfo() bool {
	return strings.HasSuffix(p.Name, "-debuginfo")
}

// IsDebugSource reports whether the package carries debugging sources
func (p *Package) IsDebugSource() bool {
	return strings.HasSuffix(p.Name, "-debugsource")
}

// SpecFile returns the build specification shipped in a source package
func (p *Package) SpecFile() (PackageFile, bool) {
	for _, f := range p.Files {
		if strings.HasSuffix(f.LocalPath, SpecFileExtension) {
			return f, true
		}
	}
	return PackageFile{}, false
}

// SpecFileExtension identifies the build specification inside a source package
const SpecFileExtension = ".spec"

// PeerSet pairs the before and after builds of one package.
// Before is nil for a newly introduced package, After is nil for a
// package that disappeared.
type PeerSet struct {
	Before *Package
	After  *Package
}

// Name returns the package name this peer represents
func (p *PeerSet) Name() string {
	if p.After != nil {
		return p.After.Name
	}
	if p.Before != nil {
		return p.Before.Name
	}
	return ""
}

// IsRebase reports whether the after build moved to a new upstream version
func (p *PeerSet) IsRebase() bool {
	if p.Before == nil || p.After == nil {
		return false
	}
	return p.Before.Version != p.After.Version
}
