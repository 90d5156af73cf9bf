package gateways

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

type tarEntry struct {
	name     string
	body     string
	linkname string
	typeflag byte
}

func buildTar(t *testing.T, entries []tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Typeflag: e.typeflag, Linkname: e.linkname}
		switch e.typeflag {
		case tar.TypeDir:
			hdr.Mode = 0755
		case tar.TypeReg:
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if e.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func xzBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func sourceTarball(t *testing.T) []byte {
	return buildTar(t, []tarEntry{
		{name: "hello-1.0/", typeflag: tar.TypeDir},
		{name: "hello-1.0/src/", typeflag: tar.TypeDir},
		{name: "hello-1.0/src/main.c", body: "int main(void) { return 0; }\n", typeflag: tar.TypeReg},
		{name: "hello-1.0/README", body: "hello\n", typeflag: tar.TypeReg},
		{name: "hello-1.0/README.md", linkname: "README", typeflag: tar.TypeSymlink},
	})
}

func TestArchiveExtractor_Formats(t *testing.T) {
	tarball := sourceTarball(t)

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{name: "plain tar", file: "hello-1.0.tar", data: tarball},
		{name: "tar.gz", file: "hello-1.0.tar.gz", data: gzipBytes(t, tarball)},
		{name: "tar.zst", file: "hello-1.0.tar.zst", data: zstdBytes(t, tarball)},
		{name: "tar.xz", file: "hello-1.0.tar.xz", data: xzBytes(t, tarball)},
		{name: "misnamed tar.gz", file: "hello-1.0.bin", data: gzipBytes(t, tarball)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := writeFile(t, dir, tt.file, tt.data)
			dest := filepath.Join(dir, "out")

			e := NewArchiveExtractor(nil)
			require.NoError(t, e.Extract(archive, dest))

			got, err := os.ReadFile(filepath.Join(dest, "hello-1.0", "src", "main.c"))
			require.NoError(t, err)
			assert.Equal(t, "int main(void) { return 0; }\n", string(got))

			link, err := os.Readlink(filepath.Join(dest, "hello-1.0", "README.md"))
			require.NoError(t, err)
			assert.Equal(t, "README", link)
		})
	}
}

func TestArchiveExtractor_Zip(t *testing.T) {
	dir := t.TempDir()
	archive := writeFile(t, dir, "src.zip", zipBytes(t, map[string]string{
		"pkg/a.go": "package pkg\n",
		"pkg/b.go": "package pkg\n",
	}))
	dest := filepath.Join(dir, "out")

	require.NoError(t, NewArchiveExtractor(nil).Extract(archive, dest))

	for _, name := range []string{"a.go", "b.go"} {
		assert.FileExists(t, filepath.Join(dest, "pkg", name))
	}
}

func TestArchiveExtractor_SingleCompressedFile(t *testing.T) {
	dir := t.TempDir()
	archive := writeFile(t, dir, "fix-build.patch.gz", gzipBytes(t, []byte("--- a\n+++ b\n")))
	dest := filepath.Join(dir, "out")

	require.NoError(t, NewArchiveExtractor(nil).Extract(archive, dest))

	got, err := os.ReadFile(filepath.Join(dest, "fix-build.patch"))
	require.NoError(t, err)
	assert.Equal(t, "--- a\n+++ b\n", string(got))
}

func TestArchiveExtractor_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	tarball := buildTar(t, []tarEntry{
		{name: "../evil", body: "x", typeflag: tar.TypeReg},
	})
	archive := writeFile(t, dir, "evil.tar.gz", gzipBytes(t, tarball))
	dest := filepath.Join(dir, "out")

	err := NewArchiveExtractor(nil).Extract(archive, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file path")
	assert.NoFileExists(t, filepath.Join(dir, "evil"))
}

func TestArchiveExtractor_RejectsWriteThroughEarlierSymlink(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	dest := filepath.Join(dir, "out")

	first := writeFile(t, dir, "a.tar", buildTar(t, []tarEntry{
		{name: "pkg/", typeflag: tar.TypeDir},
		{name: "pkg/evil", linkname: outside, typeflag: tar.TypeSymlink},
	}))
	second := writeFile(t, dir, "b.tar", buildTar(t, []tarEntry{
		{name: "pkg/evil/owned", body: "x", typeflag: tar.TypeReg},
	}))

	extractor := NewArchiveExtractor(nil)
	require.NoError(t, extractor.Extract(first, dest))

	err := extractor.Extract(second, dest)
	assert.ErrorIs(t, err, entities.ErrSymlinkInPath)
	assert.NoFileExists(t, filepath.Join(outside, "owned"))
}

func TestArchiveExtractor_RejectsSymlinkThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	archive := writeFile(t, dir, "links.tar", buildTar(t, []tarEntry{
		{name: "a", linkname: outside, typeflag: tar.TypeSymlink},
		{name: "a/sub/b", linkname: "x", typeflag: tar.TypeSymlink},
	}))

	err := NewArchiveExtractor(nil).Extract(archive, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, entities.ErrSymlinkInPath)
	assert.NoDirExists(t, filepath.Join(outside, "sub"))
}

func TestArchiveExtractor_EntrySizeLimit(t *testing.T) {
	saved := maxEntrySize
	maxEntrySize = 4
	t.Cleanup(func() { maxEntrySize = saved })

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "at limit", body: "1234", wantErr: false},
		{name: "over limit", body: "12345", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			archive := writeFile(t, dir, "src.tar", buildTar(t, []tarEntry{
				{name: "file", body: tt.body, typeflag: tar.TypeReg},
			}))

			err := NewArchiveExtractor(nil).Extract(archive, filepath.Join(dir, "out"))
			if tt.wantErr {
				assert.ErrorIs(t, err, entities.ErrEntryTooLarge)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestArchiveExtractor_Unsupported(t *testing.T) {
	dir := t.TempDir()
	archive := writeFile(t, dir, "notes.txt", []byte("just text\n"))

	err := NewArchiveExtractor(nil).Extract(archive, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, entities.ErrUnsupportedArchive)
}

func TestArchiveExtractor_MissingFile(t *testing.T) {
	err := NewArchiveExtractor(nil).Extract("/nonexistent/src.tar.gz", t.TempDir())
	assert.Error(t, err)
}

func TestDecompressedName(t *testing.T) {
	tests := map[string]string{
		"fix.patch.gz":  "fix.patch",
		"src.tgz":       "src.tar",
		"src.txz":       "src.tar",
		"data.json.zst": "data.json",
		"notes.bz2":     "notes",
		"blob":          "blob.out",
		".gz":           ".gz.out",
	}

	for in, want := range tests {
		assert.Equal(t, want, decompressedName(in), in)
	}
}
