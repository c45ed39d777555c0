package backup

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// tempSuffix returns a random suffix for sibling temp directories.
func tempSuffix() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return ".tmp"
	}
	return "." + hex.EncodeToString(b)
}

// CopyTree copies the directory tree src to dst, which must not exist.
//
// Regular files keep their permission bits and, where possible, their
// ownership. Symlinks inside the tree are recreated as links. A symlinked
// src is followed.
func CopyTree(src, dst string) error {
	root, err := filepath.EvalSymlinks(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", src)
	}
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return err
			}
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Symlink(link, target); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := copyFile(path, target, info); err != nil {
				return err
			}
		default:
			verbose.Printf("Skipping special file %s", path)
		}
		return nil
	})
}

func copyFile(src, dst string, info os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if uid, gid := getFileOwnership(info); uid >= 0 && gid >= 0 {
		if err := chownFile(dst, uid, gid); err != nil {
			verbose.Printf("Unable to preserve file ownership for %s: %v", dst, err)
		}
	}
	return nil
}

// ReplaceTree replaces dst with a copy of src.
//
// It performs the following operations:
//   - Copies src to a hidden sibling temp directory next to dst
//   - Moves the current dst aside to a second hidden sibling
//   - Renames the temp directory into place
//   - Removes the old tree
//
// If a step fails before the final rename, dst is left as it was.
func ReplaceTree(src, dst string) error {
	dir, base := filepath.Split(dst)
	suffix := tempSuffix()
	tmp := filepath.Join(dir, "."+base+suffix+".new")
	old := filepath.Join(dir, "."+base+suffix+".old")

	if err := CopyTree(src, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	hadOld := false
	if _, err := os.Lstat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			_ = os.RemoveAll(tmp)
			return fmt.Errorf("failed to move %s aside: %w", dst, err)
		}
		hadOld = true
	}

	if err := os.Rename(tmp, dst); err != nil {
		if hadOld {
			if rerr := os.Rename(old, dst); rerr != nil {
				verbose.Warnf("failed to put %s back after rename failure: %v", dst, rerr)
			}
		}
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("failed to move new tree into %s: %w", dst, err)
	}

	if hadOld {
		if err := os.RemoveAll(old); err != nil {
			verbose.Warnf("failed to remove old tree %s: %v", old, err)
		}
	}
	return nil
}
