//go:build unix

package backup

import (
	"os"
	"syscall"
)

// getFileOwnership returns the uid and gid of a copied file, or -1 when unknown.
func getFileOwnership(info os.FileInfo) (uid, gid int) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(stat.Uid), int(stat.Gid)
	}
	return -1, -1
}

// chownFile gives a copied file the owner of its source. It is skipped when
// the owner is already the current user.
func chownFile(path string, uid, gid int) error {
	if uid < 0 || gid < 0 {
		return nil
	}
	if uid == os.Getuid() && gid == os.Getgid() {
		return nil
	}
	return os.Lchown(path, uid, gid)
}
