package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// Extraction limits for .skill archives.
const (
	// MaxArchiveFileSize is the largest single file accepted (100MB).
	MaxArchiveFileSize = 100 * 1024 * 1024

	// MaxArchiveTotalSize bounds the sum of extracted bytes (500MB).
	MaxArchiveTotalSize = 500 * 1024 * 1024

	// MaxArchiveEntries bounds the number of entries.
	MaxArchiveEntries = 10000
)

// Archive extracts a locally staged .skill zip.
type Archive struct {
	// MaxFileSize overrides MaxArchiveFileSize when positive.
	MaxFileSize int64

	// MaxTotalSize overrides MaxArchiveTotalSize when positive.
	MaxTotalSize int64
}

// Fetch implements Fetcher. The context is checked between entries.
func (a *Archive) Fetch(ctx context.Context, name string, src *Source, dest string) (string, error) {
	if src == nil || src.ArchivePath == "" {
		return "", errors.NewProbeError(name, errors.ProbeKindNotFound, fmt.Errorf("missing archive path"))
	}

	zr, err := zip.OpenReader(src.ArchivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewProbeError(name, errors.ProbeKindNotFound, fmt.Errorf("archive not found: %s", src.ArchivePath))
		}
		return "", errors.NewProbeError(name, errors.ProbeKindInvalid, fmt.Errorf("failed to open archive %s: %w", src.ArchivePath, err))
	}
	defer func() { _ = zr.Close() }()

	if err := a.extract(ctx, &zr.Reader, dest); err != nil {
		if ctx.Err() != nil {
			return "", errors.NewProbeError(name, errors.ProbeKindTimeout, ctx.Err())
		}
		return "", errors.NewProbeError(name, errors.ProbeKindInvalid, err)
	}

	staged, err := locateSkill(dest, name)
	if err != nil {
		return "", errors.NewProbeError(name, errors.ProbeKindInvalid, err)
	}
	verbose.Printf("Extracted %s to %s", src.ArchivePath, staged)
	return staged, nil
}

// extract writes every entry of zr under dest.
//
// It rejects traversal paths, absolute paths, symlinks and other non-regular
// entries, and enforces per-file, total and entry-count limits.
func (a *Archive) extract(ctx context.Context, zr *zip.Reader, dest string) error {
	maxFile := a.MaxFileSize
	if maxFile <= 0 {
		maxFile = MaxArchiveFileSize
	}
	maxTotal := a.MaxTotalSize
	if maxTotal <= 0 {
		maxTotal = MaxArchiveTotalSize
	}
	if len(zr.File) > MaxArchiveEntries {
		return fmt.Errorf("archive has %d entries, limit is %d", len(zr.File), MaxArchiveEntries)
	}

	var total int64
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := validateArchivePath(f.Name); err != nil {
			return err
		}

		target := filepath.Join(dest, filepath.FromSlash(path.Clean(f.Name)))
		mode := f.Mode()
		if mode.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !mode.IsRegular() {
			return fmt.Errorf("archive contains disallowed entry type %s: %s", mode.Type(), f.Name)
		}
		if f.UncompressedSize64 > uint64(maxFile) {
			return fmt.Errorf("file %s exceeds maximum size of %d bytes", f.Name, maxFile)
		}

		n, err := extractFile(f, target, maxFile)
		if err != nil {
			return err
		}
		total += n
		if total > maxTotal {
			return fmt.Errorf("archive exceeds maximum extracted size of %d bytes", maxTotal)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string, maxFile int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	perm := f.Mode().Perm() | 0o600
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, io.LimitReader(rc, maxFile+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", f.Name, err)
	}
	if n > maxFile {
		return n, fmt.Errorf("file %s exceeds maximum size of %d bytes", f.Name, maxFile)
	}
	return n, nil
}

// validateArchivePath checks that an archive entry stays under the extraction root.
func validateArchivePath(p string) error {
	if strings.Contains(p, `\`) {
		return fmt.Errorf("backslash not allowed in archive path: %s", p)
	}
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return fmt.Errorf("absolute path not allowed in archive: %s", p)
	}
	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return fmt.Errorf("path traversal detected in archive: %s", p)
	}
	return nil
}
