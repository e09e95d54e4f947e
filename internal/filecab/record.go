package filecab

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"filecab/internal/dates"
)

// FileRecord is the in-memory view of one file in a monitored directory.
// It is derived, never persisted: a pure function of the file's current
// path and metadata, regenerated on each monitor snapshot.
type FileRecord struct {
	Path string
	Dir  string
	Name string    // display title derived from the filename
	Date time.Time // zero when no date could be derived
}

// NewFileRecord derives a record for the file at path. The display name comes
// from the filename stem with any leading date token stripped. The date is
// the first date mentioned in the filename, else the file's creation time as
// reported by the filesystem, else zero (unknown).
func NewFileRecord(path string) FileRecord {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	rec := FileRecord{
		Path: path,
		Dir:  filepath.Dir(path),
		Name: dates.Title(stem),
	}

	if found := dates.Instances(stem); len(found) > 0 {
		rec.Date = found[0].Date
		return rec
	}
	if info, err := os.Stat(path); err == nil {
		if born, ok := creationTime(info); ok {
			rec.Date = born
		}
	}
	return rec
}

// CandidateDates returns every date mentioned in the filename, for
// presentation as alternative choices when binding a date variable.
func (r FileRecord) CandidateDates() []time.Time {
	base := filepath.Base(r.Path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	found := dates.Instances(stem)
	out := make([]time.Time, len(found))
	for i, c := range found {
		out[i] = c.Date
	}
	return out
}

// Extension returns the file's extension without the leading dot.
func (r FileRecord) Extension() string {
	return strings.TrimPrefix(filepath.Ext(r.Path), ".")
}
