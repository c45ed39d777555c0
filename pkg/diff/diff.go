// Package diff compares staged and installed skill trees by content.
//
// Trees are hashed with dirhash.Hash1 over tagged entries: every regular
// file, directory and symlink below the root counts, with a symlink hashed by
// its target string rather than by what it points to. Timestamps and
// permissions do not count.
package diff

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/sumdb/dirhash"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
)

// Result is the comparison outcome.
type Result struct {
	// Status is constants.DiffUnchanged or constants.DiffChanged.
	Status string

	// StagedHash and InstalledHash are empty when hashing failed.
	StagedHash    string
	InstalledHash string

	// Err is a *errors.DiffError when either tree could not be read.
	// The status is then Changed.
	Err error
}

// HashDir returns the dirhash of a directory tree, following a symlinked root.
func HashDir(dir string) (string, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", dir)
	}
	entries, err := treeEntries(resolved)
	if err != nil {
		return "", err
	}
	return dirhash.Hash1(entries.names(), entries.open)
}

// Entry tags. Hash1 sorts names, so the tag is part of the sorted key.
const (
	tagFile = "F:"
	tagDir  = "D:"
	tagLink = "L:"
)

// treeIndex maps tagged entry names to absolute paths.
type treeIndex map[string]string

func (ti treeIndex) names() []string {
	names := make([]string, 0, len(ti))
	for name := range ti {
		names = append(names, name)
	}
	return names
}

// open returns the hashed content of an entry: file bytes, the link target,
// or nothing for a directory.
func (ti treeIndex) open(name string) (io.ReadCloser, error) {
	path, ok := ti[name]
	if !ok {
		return nil, fmt.Errorf("unknown tree entry %q", name)
	}
	switch {
	case strings.HasPrefix(name, tagLink):
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(strings.NewReader(target)), nil
	case strings.HasPrefix(name, tagDir):
		return io.NopCloser(bytes.NewReader(nil)), nil
	default:
		return os.Open(path)
	}
}

// treeEntries walks root without following symlinks below it.
func treeEntries(root string) (treeIndex, error) {
	entries := treeIndex{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch mode := d.Type(); {
		case mode&fs.ModeSymlink != 0:
			entries[tagLink+rel] = path
		case d.IsDir():
			entries[tagDir+rel] = path
		case mode.IsRegular():
			entries[tagFile+rel] = path
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Compare hashes both trees.
//
// Parameters:
//   - name: package name for error reporting
//   - staged: staged candidate directory
//   - installed: live installed directory
//
// Returns:
//   - Result: Unchanged when hashes match; Changed otherwise, including when
//     either side is unreadable
func Compare(name, staged, installed string) Result {
	stagedHash, err := HashDir(staged)
	if err != nil {
		return Result{Status: constants.DiffChanged, Err: &errors.DiffError{Package: name, Path: staged, Err: err}}
	}
	installedHash, err := HashDir(installed)
	if err != nil {
		return Result{
			Status:     constants.DiffChanged,
			StagedHash: stagedHash,
			Err:        &errors.DiffError{Package: name, Path: installed, Err: err},
		}
	}

	status := constants.DiffChanged
	if stagedHash == installedHash {
		status = constants.DiffUnchanged
	}
	return Result{Status: status, StagedHash: stagedHash, InstalledHash: installedHash}
}
