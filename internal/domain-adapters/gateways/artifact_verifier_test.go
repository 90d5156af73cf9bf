package gateways

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	digest "github.com/opencontainers/go-digest"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

// TestVerifyDigest tests content digest verification
func TestVerifyDigest(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "bundle.tar.gz")

	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	verifier := NewArtifactVerifier(nil)

	tests := []struct {
		name     string
		path     string
		expected digest.Digest
		wantErr  error
		anyErr   bool
	}{
		{
			name:     "valid sha256",
			path:     testFile,
			expected: "sha256:dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f",
		},
		{
			name:     "valid sha512",
			path:     testFile,
			expected: digest.SHA512.FromBytes(content),
		},
		{
			name:     "mismatch",
			path:     testFile,
			expected: "sha256:0000000000000000000000000000000000000000000000000000000000000000",
			wantErr:  entities.ErrDigestMismatch,
		},
		{
			name:     "malformed digest",
			path:     testFile,
			expected: "sha256:nothex",
			anyErr:   true,
		},
		{
			name:     "non-existent file",
			path:     filepath.Join(tmpDir, "missing"),
			expected: digest.FromBytes(content),
			anyErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.VerifyDigest(tt.path, tt.expected)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("VerifyDigest() error = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Error("VerifyDigest() expected error, got nil")
				}
			default:
				if err != nil {
					t.Errorf("VerifyDigest() error = %v", err)
				}
			}
		})
	}
}

func TestArtifactVerifier_SignatureWithoutKeyring(t *testing.T) {
	verifier := NewArtifactVerifier(nil)
	job := &entities.FetchJob{
		URL:          "https://example.com/bundle.tar.gz",
		Dest:         "/nonexistent",
		SignatureURL: "https://example.com/bundle.tar.gz.asc",
	}

	if err := verifier.Verify(context.Background(), job); err == nil {
		t.Error("Verify() expected error when no keyring is configured")
	}
}

func TestArtifactVerifier_NothingRequested(t *testing.T) {
	verifier := NewArtifactVerifier(nil)
	job := &entities.FetchJob{URL: "https://example.com/x", Dest: "/nonexistent"}

	if err := verifier.Verify(context.Background(), job); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestNewArtifactVerifierFromKeyring(t *testing.T) {
	v, err := NewArtifactVerifierFromKeyring("")
	if err != nil || v == nil {
		t.Fatalf("NewArtifactVerifierFromKeyring(\"\") = %v, %v", v, err)
	}

	if _, err := NewArtifactVerifierFromKeyring("/nonexistent/keyring.asc"); err == nil {
		t.Error("NewArtifactVerifierFromKeyring() expected error for missing keyring")
	}
}

// writeSigningKey creates a throwaway key and writes its armored public half
func writeSigningKey(t *testing.T, dir string) (*openpgp.Entity, string) {
	t.Helper()

	entity, err := openpgp.NewEntity("pkginspect test", "", "test@example.com", nil)
	if err != nil {
		t.Fatalf("Failed to create key: %v", err)
	}

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("Failed to start armor: %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("Failed to serialize public key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close armor: %v", err)
	}

	keyPath := filepath.Join(dir, "keyring.asc")
	if err := os.WriteFile(keyPath, buf.Bytes(), 0600); err != nil {
		t.Fatalf("Failed to write key: %v", err)
	}
	return entity, keyPath
}

func TestArtifactVerifier_LocalSignatureFile(t *testing.T) {
	tmpDir := t.TempDir()
	signer, keyPath := writeSigningKey(t, tmpDir)

	data := []byte("package bundle contents")
	dataPath := filepath.Join(tmpDir, "bundle.tar.gz")
	if err := os.WriteFile(dataPath, data, 0600); err != nil {
		t.Fatal(err)
	}

	var good, bad bytes.Buffer
	if err := openpgp.ArmoredDetachSign(&good, signer, bytes.NewReader(data), nil); err != nil {
		t.Fatal(err)
	}
	if err := openpgp.ArmoredDetachSign(&bad, signer, bytes.NewReader([]byte("tampered")), nil); err != nil {
		t.Fatal(err)
	}

	verifier, err := NewArtifactVerifierFromKeyring(keyPath)
	if err != nil {
		t.Fatalf("NewArtifactVerifierFromKeyring() error = %v", err)
	}

	tests := []struct {
		name    string
		sig     []byte
		wantErr bool
	}{
		{name: "matching signature", sig: good.Bytes()},
		{name: "signature over other data", sig: bad.Bytes(), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigPath := filepath.Join(t.TempDir(), "bundle.tar.gz.asc")
			if err := os.WriteFile(sigPath, tt.sig, 0600); err != nil {
				t.Fatal(err)
			}

			job := &entities.FetchJob{URL: "https://example.com/bundle.tar.gz", Dest: dataPath, SignatureURL: sigPath}
			err := verifier.Verify(context.Background(), job)
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsRemoteSignature(t *testing.T) {
	tests := map[string]bool{
		"https://example.com/x.asc": true,
		"http://example.com/x.sig":  true,
		"/srv/keys/x.asc":           false,
		"x.sig":                     false,
	}
	for in, want := range tests {
		if got := isRemote(in); got != want {
			t.Errorf("isRemote(%q) = %v, want %v", in, got, want)
		}
	}
}
