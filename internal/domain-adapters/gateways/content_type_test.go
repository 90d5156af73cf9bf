package gateways

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentTypeOf(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want string
	}{
		{name: "plain ascii", head: []byte("int main(void) { return 0; }\n"), want: "text/plain"},
		{name: "utf-8 with bidi override", head: []byte("safe\u202etext\n"), want: "text/plain"},
		{name: "utf-8 bom", head: []byte("\xEF\xBB\xBFhello\n"), want: "text/plain"},
		{name: "utf-16le bom", head: []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, want: "text/plain"},
		{name: "utf-16be bom", head: []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, want: "text/plain"},
		{name: "gzip", head: []byte{0x1F, 0x8B, 0x08, 0, 0, 0, 0, 0, 0, 0}, want: "application/gzip"},
		{name: "zip", head: []byte{'P', 'K', 0x03, 0x04, 0x14, 0, 0, 0}, want: "application/zip"},
		{name: "xz", head: []byte{0xFD, '7', 'z', 'X', 'Z', 0x00, 0, 0}, want: "application/x-xz"},
		{name: "binary garbage", head: []byte{0x00, 0x01, 0x02, 0x03}, want: "application/octet-stream"},
		{name: "empty", head: nil, want: "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentTypeOf(tt.head))
		})
	}
}

func TestDetectContentType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "README")
	require.NoError(t, os.WriteFile(path, []byte("# readme\n"), 0600))

	got, err := DetectContentType(path)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got)
	assert.True(t, IsText(got))

	_, err = DetectContentType(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
