package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/core/coretest"
	"github.com/maeven-tapa/eals/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var pht = time.FixedZone("PHT", 8*60*60)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

// recordingMirror is an in-memory bucket.
type recordingMirror struct {
	uploaded []string
	deleted  []string
	objects  map[string][]byte
	err      error
	listErr  error
}

func (m *recordingMirror) Upload(_ context.Context, localPath string) error {
	m.uploaded = append(m.uploaded, filepath.Base(localPath))
	if m.err != nil {
		return m.err
	}
	b, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.put(filepath.Base(localPath), b)
	return nil
}

func (m *recordingMirror) put(name string, b []byte) {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[name] = b
}

func (m *recordingMirror) Download(_ context.Context, name string, w io.Writer) error {
	b, ok := m.objects[name]
	if !ok {
		return fmt.Errorf("no such key %s", name)
	}
	_, err := w.Write(b)
	return err
}

func (m *recordingMirror) Delete(_ context.Context, name string) error {
	m.deleted = append(m.deleted, name)
	delete(m.objects, name)
	return nil
}

func (m *recordingMirror) List(context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

type recordingNotifier struct {
	infos, errs []string
}

func (n *recordingNotifier) Info(_ context.Context, msg string) error {
	n.infos = append(n.infos, msg)
	return nil
}

func (n *recordingNotifier) Error(_ context.Context, msg string) error {
	n.errs = append(n.errs, msg)
	return nil
}

func newScheduler(t *testing.T, c *clock, opts ...Option) (*Scheduler, *core.DatabaseManager) {
	t.Helper()
	dm := coretest.Open(t)
	opts = append([]Option{WithLocation(pht), WithClock(c.now)}, opts...)
	return NewScheduler(dm, filepath.Join(t.TempDir(), "backups"), opts...), dm
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func names(t *testing.T, s *Scheduler) []string {
	t.Helper()
	snaps, err := s.List()
	require.NoError(t, err)
	var out []string
	for _, snap := range snaps {
		out = append(out, snap.Name)
	}
	return out
}

func TestTickWithoutSettingsDoesNothing(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	s, _ := newScheduler(t, c)

	res, err := s.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not configured", res.Skipped)
	assert.Empty(t, names(t, s))
}

func TestTickSnapshotsOnCadence(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	mirror := &recordingMirror{}
	s, dm := newScheduler(t, c, WithMirror(mirror))
	ctx := context.Background()
	require.NoError(t, SaveSettings(ctx, dm, Policy{Frequency: 2, Unit: UnitHours}, "admin-01-0001"))

	res, err := s.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, "backup_20240501_090000.db", res.Snapshot.Name)
	assert.Equal(t, []string{"backup_20240501_090000.db"}, mirror.uploaded)

	c.t = c.t.Add(time.Hour)
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot)
	assert.Equal(t, "not due", res.Skipped)

	// a few seconds of timer drift still counts as due
	c.t = c.t.Add(time.Hour - 3*time.Second)
	res, err = s.Tick(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)

	assert.Equal(t, []string{"backup_20240501_105957.db", "backup_20240501_090000.db"}, names(t, s))
	assert.Equal(t, StateIdle, s.State())
}

func TestSnapshotIsARestorableCopy(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	relaunched := 0
	notifier := &recordingNotifier{}
	s, dm := newScheduler(t, c, WithNotifier(notifier), WithRelauncher(func() error {
		relaunched++
		return nil
	}))
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)

	require.NoError(t, dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Create(&model.Feedback{ID: "later", Title: "t", Message: "m", EmployeeID: "ACC-24-0001"}).Error
	}))

	require.NoError(t, s.Restore(ctx, snap.Name, "admin-01-0001"))
	assert.Equal(t, 1, relaunched)
	assert.Len(t, notifier.infos, 1)

	var n int64
	require.NoError(t, dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Model(&model.Feedback{}).Count(&n).Error
	}))
	assert.Equal(t, int64(0), n)
}

func TestRestoreRejectsBadNames(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	s, _ := newScheduler(t, c)
	ctx := context.Background()

	assert.Equal(t, apperror.CodeValidation, apperror.GetCode(s.Restore(ctx, "../eals.db", "admin")))
	assert.Equal(t, apperror.CodeValidation, apperror.GetCode(s.Restore(ctx, "notes.txt", "admin")))
	assert.Equal(t, apperror.CodeNotFound, apperror.GetCode(s.Restore(ctx, "backup_20240101_000000.db", "admin")))
}

func TestBusySchedulerRejectsWork(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	s, dm := newScheduler(t, c)
	ctx := context.Background()
	require.NoError(t, SaveSettings(ctx, dm, Policy{Frequency: 1, Unit: UnitHours}, "admin"))
	touch(t, s.Dir(), "backup_20240501_080000.db")

	s.state.Store(int32(StateSnapshotting))

	res, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, "busy", res.Skipped)
	assert.Equal(t, []string{"backup_20240501_080000.db"}, names(t, s))

	err = s.Restore(ctx, "backup_20240501_080000.db", "admin")
	assert.Equal(t, apperror.CodeBusy, apperror.GetCode(err))

	_, err = s.Snapshot(ctx)
	assert.Equal(t, apperror.CodeBusy, apperror.GetCode(err))
}

func TestRetentionEviction(t *testing.T) {
	// 50 snapshots spread over three days, hourly cadence, two days retention
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, pht)
	step := 72 * time.Hour / 49
	last := start.Add(49 * step).Truncate(time.Second)

	c := &clock{t: last.Add(30 * time.Minute)}
	s, dm := newScheduler(t, c)
	ctx := context.Background()
	require.NoError(t, SaveSettings(ctx, dm, Policy{
		Frequency:          1,
		Unit:               UnitHours,
		RetentionEnabled:   true,
		RetentionFrequency: 2,
		RetentionUnit:      UnitDays,
	}, "admin"))

	for i := 0; i < 50; i++ {
		touch(t, s.Dir(), SnapshotName(start.Add(time.Duration(i)*step)))
	}
	touch(t, s.Dir(), "backup_garbage.db")
	touch(t, s.Dir(), "readme.txt")

	res, err := s.Tick(ctx)
	require.NoError(t, err)
	assert.Nil(t, res.Snapshot)
	assert.NotEmpty(t, res.Evicted)

	cutoff := c.t.Add(-48 * time.Hour)
	remaining, err := s.List()
	require.NoError(t, err)
	require.NotEmpty(t, remaining)
	for _, snap := range remaining {
		assert.False(t, snap.Taken.Before(cutoff), snap.Name)
	}
	assert.Equal(t, 50, len(remaining)+len(res.Evicted))

	assert.FileExists(t, filepath.Join(s.Dir(), "backup_garbage.db"))
	assert.FileExists(t, filepath.Join(s.Dir(), "readme.txt"))
}

func TestEvictWindowProperty(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 10, 12, 0, 0, 0, pht)}
	s, _ := newScheduler(t, c)
	for h := 0; h < 24*7; h += 5 {
		touch(t, s.Dir(), SnapshotName(c.t.Add(-time.Duration(h)*time.Hour)))
	}

	for _, window := range []time.Duration{72 * time.Hour, 24 * time.Hour, time.Hour, 0} {
		_, err := s.Evict(context.Background(), c.t, window)
		require.NoError(t, err)

		snaps, err := s.List()
		require.NoError(t, err)
		for _, snap := range snaps {
			assert.False(t, snap.Taken.Before(c.t.Add(-window)), "%s survived window %s", snap.Name, window)
		}
	}
}

func TestMirrorFailureKeepsSnapshot(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	notifier := &recordingNotifier{}
	s, _ := newScheduler(t, c, WithMirror(&recordingMirror{err: errors.New("access denied")}), WithNotifier(notifier))

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(s.Dir(), snap.Name))
	assert.Len(t, notifier.errs, 1)
}

func TestEvictReachesMirror(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 10, 12, 0, 0, 0, pht)}
	mirror := &recordingMirror{}
	s, _ := newScheduler(t, c, WithMirror(mirror))

	old := SnapshotName(c.t.Add(-72 * time.Hour))
	recent := SnapshotName(c.t.Add(-time.Hour))
	offsiteOnly := SnapshotName(c.t.Add(-96 * time.Hour))
	for _, name := range []string{old, recent} {
		touch(t, s.Dir(), name)
		mirror.put(name, []byte("x"))
	}
	mirror.put(offsiteOnly, []byte("x"))
	mirror.put("notes.txt", []byte("x"))

	evicted, err := s.Evict(context.Background(), c.t, 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, evicted)
	assert.ElementsMatch(t, []string{old, offsiteOnly}, mirror.deleted)

	names, err := mirror.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{recent, "notes.txt"}, names)
}

func TestEvictSurvivesMirrorFailure(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 10, 12, 0, 0, 0, pht)}
	notifier := &recordingNotifier{}
	s, _ := newScheduler(t, c, WithMirror(&recordingMirror{listErr: errors.New("throttled")}), WithNotifier(notifier))
	touch(t, s.Dir(), SnapshotName(c.t.Add(-72*time.Hour)))

	evicted, err := s.Evict(context.Background(), c.t, 48*time.Hour)
	require.NoError(t, err)
	assert.Len(t, evicted, 1)
	assert.Len(t, notifier.errs, 1)
}

func TestFetchOffsiteThenRestore(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	mirror := &recordingMirror{}
	s, _ := newScheduler(t, c, WithMirror(mirror))
	ctx := context.Background()

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(s.Dir(), snap.Name)))

	offsite, err := s.ListOffsite(ctx)
	require.NoError(t, err)
	require.Len(t, offsite, 1)
	assert.Equal(t, snap.Name, offsite[0].Name)

	require.NoError(t, s.FetchOffsite(ctx, snap.Name))
	assert.FileExists(t, filepath.Join(s.Dir(), snap.Name))

	err = s.FetchOffsite(ctx, "../eals.db")
	assert.Equal(t, apperror.CodeValidation, apperror.GetCode(err))
	assert.Error(t, s.FetchOffsite(ctx, SnapshotName(c.t.Add(-time.Hour))))
	assert.NoFileExists(t, filepath.Join(s.Dir(), SnapshotName(c.t.Add(-time.Hour))))
}

func TestStartStop(t *testing.T) {
	c := &clock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, pht)}
	s, _ := newScheduler(t, c)
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
}
