// Package gateways defines interfaces for external service adapters.
package gateways

import "github.com/ochairo/pkginspect/internal/domain/entities"

// HeaderReader reads tags from an opaque package header.
// Inspections only consume these accessors; they never parse headers.
type HeaderReader interface {
	// TagString returns a string-valued tag
	TagString(h entities.Header, tag entities.Tag) (string, bool)

	// TagStrings returns a list-valued tag, e.g. declared source files
	TagStrings(h entities.Header, tag entities.Tag) []string

	// IsSource reports whether the header belongs to a source package
	IsSource(h entities.Header) bool

	// Arch returns the architecture string
	Arch(h entities.Header) string
}
