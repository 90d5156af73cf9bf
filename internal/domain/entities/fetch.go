package entities

import digest "github.com/opencontainers/go-digest"

// FetchStatus is the terminal state of a FetchJob
type FetchStatus int

const (
	FetchPending FetchStatus = iota
	FetchDone
	FetchFailed
)

// FetchJob maps one URL to one destination file
type FetchJob struct {
	URL          string
	Dest         string
	Digest       digest.Digest // optional expected content digest
	SignatureURL string        // optional detached OpenPGP signature, a URL or a local path

	Status  FetchStatus
	Written int64
	Err     error
}
