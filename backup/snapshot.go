package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maeven-tapa/eals/apperror"
)

const (
	snapshotPrefix = "backup_"
	snapshotSuffix = ".db"
	snapshotLayout = "20060102_150405"
)

// Snapshot is one file in the backup directory.
type Snapshot struct {
	Name  string    `json:"name"`
	Taken time.Time `json:"taken"`
	Size  int64     `json:"size"`
}

// SnapshotName renders the file name for a snapshot taken at t.
func SnapshotName(t time.Time) string {
	return snapshotPrefix + t.Format(snapshotLayout) + snapshotSuffix
}

// ParseSnapshotName reads the timestamp out of a snapshot file name.
func ParseSnapshotName(name string, loc *time.Location) (time.Time, bool) {
	if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotSuffix)
	t, err := time.ParseInLocation(snapshotLayout, stamp, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// listSnapshots returns parseable snapshots in dir, newest first.
func listSnapshots(dir string, loc *time.Location) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		taken, ok := ParseSnapshotName(e.Name(), loc)
		if !ok {
			continue
		}
		s := Snapshot{Name: e.Name(), Taken: taken}
		if info, err := e.Info(); err == nil {
			s.Size = info.Size()
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Taken.After(out[j].Taken)
	})
	return out, nil
}

func snapshotPath(dir, name string) string {
	return filepath.Join(dir, name)
}

// validSnapshotName rejects anything but a bare snapshot file name.
func validSnapshotName(name string, loc *time.Location) error {
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return apperror.Newf(apperror.CodeValidation, "invalid snapshot name %q", name)
	}
	if _, ok := ParseSnapshotName(name, loc); !ok {
		return apperror.Newf(apperror.CodeValidation, "invalid snapshot name %q", name)
	}
	return nil
}
