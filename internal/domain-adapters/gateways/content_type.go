package gateways

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

// sniffLen is how much of a file is read to classify it
const sniffLen = 8192

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectContentType classifies a file by its leading bytes and returns a
// bare MIME type without parameters
func DetectContentType(path string) (string, error) {
	//nolint:gosec // G304: path comes from a directory walk
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return ContentTypeOf(head[:n]), nil
}

// ContentTypeOf classifies a buffer. Binary formats are recognized by
// magic numbers first; everything else falls back to text sniffing.
func ContentTypeOf(head []byte) string {
	if kind, err := filetype.Match(head); err == nil && kind != types.Unknown {
		return kind.MIME.Value
	}

	// UTF-16 text is full of NUL bytes and would otherwise look binary
	if bytes.HasPrefix(head, bomUTF16LE) || bytes.HasPrefix(head, bomUTF16BE) {
		return "text/plain"
	}

	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(head))
	if err != nil {
		return "application/octet-stream"
	}
	return mediaType
}

// IsText reports whether a MIME type is textual
func IsText(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/")
}
