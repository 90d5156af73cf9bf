package gateways

import (
	"context"
	_ "crypto/sha256" // registers digest algorithms
	_ "crypto/sha512"
	"fmt"
	"net/url"
	"os"

	digest "github.com/opencontainers/go-digest"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/external-adapters/gpg"
)

// artifactVerifier checks a fetched file against the digest and detached
// signature recorded on its job
type artifactVerifier struct {
	signatures *gpg.Verifier
}

// NewArtifactVerifier creates a verifier. signatures may be nil, in which
// case jobs carrying a signature URL fail verification.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewArtifactVerifier(signatures *gpg.Verifier) *artifactVerifier {
	return &artifactVerifier{signatures: signatures}
}

// NewArtifactVerifierFromKeyring loads an OpenPGP keyring file. An empty
// path yields a digest-only verifier.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewArtifactVerifierFromKeyring(keyring string) (*artifactVerifier, error) {
	if keyring == "" {
		return NewArtifactVerifier(nil), nil
	}

	signatures := gpg.NewVerifier()
	if err := signatures.ImportKeyFromFile(keyring); err != nil {
		return nil, fmt.Errorf("failed to load keyring %s: %w", keyring, err)
	}

	return NewArtifactVerifier(signatures), nil
}

// Verify runs every check the job asks for
func (v *artifactVerifier) Verify(ctx context.Context, job *entities.FetchJob) error {
	if job.Digest != "" {
		if err := v.VerifyDigest(job.Dest, job.Digest); err != nil {
			return err
		}
	}

	if job.SignatureURL != "" {
		if v.signatures == nil || v.signatures.KeyringSize() == 0 {
			return fmt.Errorf("signature requested for %s but no keyring is configured", job.URL)
		}

		var err error
		if isRemote(job.SignatureURL) {
			err = v.signatures.VerifySignature(ctx, job.Dest, job.SignatureURL)
		} else {
			err = v.signatures.VerifySignatureFromFile(job.Dest, job.SignatureURL)
		}
		if err != nil {
			return fmt.Errorf("signature verification failed: %w", err)
		}
	}

	return nil
}

// isRemote reports whether a signature location is an http(s) URL rather
// than a local file
func isRemote(location string) bool {
	u, err := url.Parse(location)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// VerifyDigest hashes filePath with the expected digest's algorithm
func (v *artifactVerifier) VerifyDigest(filePath string, expected digest.Digest) error {
	if err := expected.Validate(); err != nil {
		return fmt.Errorf("invalid digest %q: %w", expected, err)
	}

	//nolint:gosec // G304: File path is the destination of a fetch job
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	actual, err := expected.Algorithm().FromReader(f)
	if err != nil {
		return fmt.Errorf("failed to hash file: %w", err)
	}

	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", entities.ErrDigestMismatch, expected, actual)
	}

	return nil
}
