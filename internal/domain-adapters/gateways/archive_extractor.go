package gateways

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
)

// maxEntrySize caps any single extracted file (decompression bombs)
var maxEntrySize int64 = 1 << 30

// compressionSuffixes maps compressed file suffixes to what replaces them
// once decompressed
var compressionSuffixes = [][2]string{
	{".tgz", ".tar"},
	{".tbz2", ".tar"},
	{".txz", ".tar"},
	{".tzst", ".tar"},
	{".gz", ""},
	{".bz2", ""},
	{".xz", ""},
	{".zst", ""},
}

// ArchiveExtractor unpacks source archives by content, not by file name
type ArchiveExtractor struct {
	logger interfaces.Logger
}

// NewArchiveExtractor creates a new archive extractor
func NewArchiveExtractor(logger interfaces.Logger) *ArchiveExtractor {
	return &ArchiveExtractor{logger: interfaces.OrNoOp(logger)}
}

// Extract unpacks archivePath into destDir. Tar streams may be wrapped in
// gzip, bzip2, xz or zstd; a compressed file that is not a tar stream is
// decompressed into a single file.
func (e *ArchiveExtractor) Extract(archivePath, destDir string) error {
	//nolint:gosec // G304: archivePath is a declared package source
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	br := bufio.NewReaderSize(f, sniffLen)
	head, _ := br.Peek(sniffLen)
	kind, _ := filetype.Match(head)

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	name := filepath.Base(archivePath)

	switch kind {
	case matchers.TypeTar:
		return e.extractTar(br, destDir)

	case matchers.TypeZip:
		return e.extractZip(archivePath, destDir)

	case matchers.TypeGz:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		//nolint:errcheck // Defer close on gzip reader
		defer gzr.Close()
		return e.extractStream(gzr, name, destDir)

	case matchers.TypeBz2:
		return e.extractStream(bzip2.NewReader(br), name, destDir)

	case matchers.TypeXz:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		return e.extractStream(xzr, name, destDir)

	case matchers.TypeZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		return e.extractStream(zr, name, destDir)
	}

	return fmt.Errorf("%w: %s", entities.ErrUnsupportedArchive, name)
}

// extractStream unpacks a decompressed stream as tar when it carries a tar
// header, otherwise writes it out as one file
func (e *ArchiveExtractor) extractStream(r io.Reader, name, destDir string) error {
	br := bufio.NewReaderSize(r, sniffLen)
	head, _ := br.Peek(sniffLen)

	if kind, _ := filetype.Match(head); kind == matchers.TypeTar {
		return e.extractTar(br, destDir)
	}

	target, err := safeJoin(destDir, decompressedName(name))
	if err != nil {
		return err
	}
	return writeEntry(target, br, 0640)
}

// extractTar extracts a tar stream into destDir
func (e *ArchiveExtractor) extractTar(r io.Reader, destDir string) error {
	tr := tar.NewReader(r)

	// Symlinks are created after every regular file so no write can
	// follow a link planted earlier in the archive
	type symlinkInfo struct {
		target   string
		linkname string
	}
	var symlinks []symlinkInfo

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		target, err := safeJoin(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			//nolint:gosec // G115: Integer overflow from tar header mode is acceptable
			if err := writeEntry(target, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}

		case tar.TypeSymlink:
			symlinks = append(symlinks, symlinkInfo{target: target, linkname: header.Linkname})

		case tar.TypeLink:
			source, err := safeJoin(destDir, header.Linkname)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}
			if err := os.Link(source, target); err != nil {
				e.logger.Warn("failed to create hard link",
					interfaces.F("link", target), interfaces.F("target", source), interfaces.F("error", err))
			}

		case tar.TypeXGlobalHeader:
			// pax global headers carry no file

		default:
			e.logger.Debug("ignoring unsupported tar entry",
				interfaces.F("type", string(header.Typeflag)), interfaces.F("name", header.Name))
		}
	}

	for _, link := range symlinks {
		// an earlier link in this loop may now sit on the path
		if err := rejectSymlinkedPath(destDir, filepath.Dir(link.target)); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		// broken links are common in source tarballs
		if err := os.Symlink(link.linkname, link.target); err != nil {
			e.logger.Warn("failed to create symlink",
				interfaces.F("link", link.target), interfaces.F("target", link.linkname), interfaces.F("error", err))
		}
	}

	return nil
}

// extractZip extracts a zip archive into destDir. Symlink entries are skipped.
func (e *ArchiveExtractor) extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	//nolint:errcheck // Defer close on zip reader
	defer zr.Close()

	for _, zf := range zr.File {
		target, err := safeJoin(destDir, zf.Name)
		if err != nil {
			return err
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case mode.IsRegular():
			rc, err := zf.Open()
			if err != nil {
				return fmt.Errorf("failed to open %s in zip: %w", zf.Name, err)
			}
			err = writeEntry(target, rc, mode.Perm())
			_ = rc.Close()
			if err != nil {
				return err
			}

		default:
			e.logger.Debug("ignoring unsupported zip entry", interfaces.F("name", zf.Name))
		}
	}

	return nil
}

// safeJoin joins an archive member name to destDir, rejecting names that
// would land outside it either lexically or through a symlink already on disk
func safeJoin(destDir, name string) (string, error) {
	//nolint:gosec // G305: Path traversal validated below
	target := filepath.Join(destDir, name)

	rel, err := filepath.Rel(filepath.Clean(destDir), target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path in archive: %s", name)
	}

	if err := rejectSymlinkedPath(destDir, target); err != nil {
		return "", err
	}

	return target, nil
}

// rejectSymlinkedPath fails when any existing component of target below
// destDir, target included, is a symlink
func rejectSymlinkedPath(destDir, target string) error {
	rel, err := filepath.Rel(filepath.Clean(destDir), target)
	if err != nil {
		return fmt.Errorf("invalid file path in archive: %s", target)
	}
	if rel == "." {
		return nil
	}

	cur := filepath.Clean(destDir)
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", cur, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", entities.ErrSymlinkInPath, rel)
		}
	}

	return nil
}

// writeEntry writes one regular file, creating parent directories
func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// owner must be able to read it back and remove it
	perm |= 0600

	//nolint:gosec // G304: target was validated by safeJoin
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(r, maxEntrySize+1))
	if err == nil && n > maxEntrySize {
		err = fmt.Errorf("%w: %s", entities.ErrEntryTooLarge, filepath.Base(target))
	}
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}

// decompressedName strips a compression suffix from a file name
func decompressedName(name string) string {
	for _, pair := range compressionSuffixes {
		if base, ok := strings.CutSuffix(name, pair[0]); ok && base != "" {
			return base + pair[1]
		}
	}
	return name + ".out"
}
