package entities

import (
	"os"
	"sync"
)

// PrepMethod records how a source tree was materialized
type PrepMethod int

const (
	// PrepBuildStep means the package's own preparation step produced the tree
	PrepBuildStep PrepMethod = iota
	// PrepManual means source archives were unpacked one by one
	PrepManual
)

func (m PrepMethod) String() string {
	if m == PrepManual {
		return "manual"
	}
	return "build-step"
}

// UnpackPrefix starts the name of every per-archive directory created
// by manual extraction
const UnpackPrefix = "unpack-"

// SourceTree is a materialized source tree for one source package.
// The caller owns it and must call Remove once scanning is finished.
type SourceTree struct {
	Base    string // everything created for this package lives below Base
	Root    string // prepared build subtree that gets scanned
	Method  PrepMethod
	Details string // captured preparation output

	once sync.Once
	err  error
}

// Remove deletes the whole tree. Calling it more than once is harmless.
func (t *SourceTree) Remove() error {
	if t == nil {
		return nil
	}
	t.once.Do(func() {
		if t.Base != "" {
			t.err = os.RemoveAll(t.Base)
		}
	})
	return t.err
}
