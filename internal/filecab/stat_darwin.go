//go:build darwin

package filecab

import (
	"io/fs"
	"syscall"
	"time"
)

// creationTime extracts the file's birth time, which Darwin filesystems
// record natively.
func creationTime(info fs.FileInfo) (time.Time, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec), true
}
