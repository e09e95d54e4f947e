//go:build unix && !darwin

package filecab

import (
	"io/fs"
	"syscall"
	"time"
)

// creationTime extracts a creation date from stat data. Birth time is not
// available on most Unix filesystems, so the inode change time stands in as
// the closest available value.
func creationTime(info fs.FileInfo) (time.Time, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec), true
}
