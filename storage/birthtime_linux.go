//go:build linux

package storage

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime reads the creation time via statx; filesystems without btime fall back to mtime.
func birthTime(p string, info fs.FileInfo) time.Time {
	var stx unix.Statx_t
	if err := unix.Statx(unix.AT_FDCWD, p, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx); err != nil {
		return info.ModTime()
	}
	if stx.Mask&unix.STATX_BTIME == 0 {
		return info.ModTime()
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
