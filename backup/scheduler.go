package backup

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/auditlog"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/infrastructure/communication"
	"github.com/maeven-tapa/eals/infrastructure/filesystem"
	"github.com/maeven-tapa/eals/utils"
	"github.com/robfig/cron/v3"
)

// TickSpec is the cron spec of the backup loop.
const TickSpec = "@every 1h"

// tickSlack absorbs timer drift so an hourly cadence is not skipped every
// other tick.
const tickSlack = time.Minute

type State int32

const (
	StateIdle State = iota
	StateSnapshotting
	StateEvicting
	StateRestoring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSnapshotting:
		return "SNAPSHOTTING"
	case StateEvicting:
		return "EVICTING"
	case StateRestoring:
		return "RESTORING"
	}
	return "UNKNOWN"
}

// Mirror keeps an offsite copy of the snapshot directory. Names are snapshot
// file names.
type Mirror interface {
	Upload(ctx context.Context, localPath string) error
	Download(ctx context.Context, name string, w io.Writer) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

// Relauncher restarts the process after a restore.
type Relauncher func() error

// TickResult describes what one tick did.
type TickResult struct {
	Skipped  string    `json:"skipped,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Evicted  []string  `json:"evicted,omitempty"`
}

type Scheduler struct {
	dm       *core.DatabaseManager
	dir      string
	loc      *time.Location
	now      func() time.Time
	journal  auditlog.Recorder
	notifier communication.Notifier
	mirror   Mirror
	relaunch Relauncher

	state atomic.Int32
	cron  *cron.Cron
}

type Option func(*Scheduler)

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

func WithJournal(j auditlog.Recorder) Option {
	return func(s *Scheduler) {
		if j != nil {
			s.journal = j
		}
	}
}

func WithNotifier(n communication.Notifier) Option {
	return func(s *Scheduler) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithMirror(m Mirror) Option {
	return func(s *Scheduler) {
		s.mirror = m
	}
}

func WithRelauncher(r Relauncher) Option {
	return func(s *Scheduler) {
		s.relaunch = r
	}
}

// NewScheduler keeps snapshots of dm's database file in dir.
func NewScheduler(dm *core.DatabaseManager, dir string, opts ...Option) *Scheduler {
	s := &Scheduler{
		dm:       dm,
		dir:      dir,
		loc:      time.Local,
		now:      time.Now,
		journal:  auditlog.Discard,
		notifier: communication.NopNotifier,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Dir() string {
	return s.dir
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start registers the hourly tick and starts the cron loop.
func (s *Scheduler) Start() error {
	logger := cron.VerbosePrintfLogger(log.New(os.Stdout, "[BACKUP] ", log.LstdFlags))
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)

	_, err := c.AddFunc(TickSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.Tick(ctx); err != nil {
			log.Printf("[BACKUP] tick failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register backup tick: %w", err)
	}

	s.cron = c
	c.Start()
	log.Printf("[BACKUP] started schedule=%q dir=%q", TickSpec, s.dir)
	return nil
}

// Stop halts the loop and waits for a running tick.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

// Tick runs one pass of the loop. A tick while another pass or a restore is
// running does nothing. Failures are reported and returned; the loop goes on.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSnapshotting)) {
		return TickResult{Skipped: "busy"}, nil
	}
	defer s.state.Store(int32(StateIdle))

	res, err := s.tick(ctx)
	if err != nil {
		msg := fmt.Sprintf("backup tick failed: %v", err)
		log.Printf("[BACKUP] %s", msg)
		s.journal.Record(ctx, "system", msg)
		if nerr := s.notifier.Error(ctx, msg); nerr != nil {
			log.Printf("[ERROR] failed to post backup failure: %v", nerr)
		}
	}
	return res, err
}

func (s *Scheduler) tick(ctx context.Context) (TickResult, error) {
	var res TickResult

	policy, _, err := LoadSettings(ctx, s.dm)
	if err != nil {
		return res, err
	}
	if policy == nil {
		res.Skipped = "not configured"
		return res, nil
	}

	now := s.now()
	due, err := s.due(now, policy.Cadence())
	if err != nil {
		return res, err
	}

	if due {
		snap, err := s.snapshot(ctx, now)
		if err != nil {
			return res, err
		}
		res.Snapshot = snap
	} else {
		res.Skipped = "not due"
	}

	if window := policy.Window(); window > 0 {
		s.state.Store(int32(StateEvicting))
		evicted, err := s.Evict(ctx, now, window)
		res.Evicted = evicted
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// due reports whether the newest snapshot is at least one cadence old.
func (s *Scheduler) due(now time.Time, cadence time.Duration) (bool, error) {
	snaps, err := listSnapshots(s.dir, s.loc)
	if err != nil {
		return false, fmt.Errorf("failed to list snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return true, nil
	}
	return now.Sub(snaps[0].Taken) >= cadence-tickSlack, nil
}

// Snapshot copies the live database into the backup directory now,
// regardless of cadence.
func (s *Scheduler) Snapshot(ctx context.Context) (*Snapshot, error) {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateSnapshotting)) {
		return nil, apperror.Newf(apperror.CodeBusy, "backup is %s", s.State())
	}
	defer s.state.Store(int32(StateIdle))
	return s.snapshot(ctx, s.now())
}

func (s *Scheduler) snapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	taken := now.In(s.loc).Truncate(time.Second)
	name := SnapshotName(taken)
	dst := snapshotPath(s.dir, name)

	err := s.dm.WithFileLocked(ctx, func(path string) error {
		return filesystem.CopyFile(path, dst)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	snap := &Snapshot{Name: name, Taken: taken}
	if info, err := os.Stat(dst); err == nil {
		snap.Size = info.Size()
	}
	log.Printf("[BACKUP] snapshot %s written", name)
	s.journal.Record(ctx, "system", fmt.Sprintf("backup snapshot %s created", name))

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, dst); err != nil {
			// the local snapshot stands; only the offsite copy is missing
			log.Printf("[ERROR] failed to mirror %s: %v", name, err)
			s.notifier.Error(ctx, fmt.Sprintf("failed to mirror backup %s: %v", name, err))
		}
	}
	return snap, nil
}

// Evict deletes every snapshot taken before now-window, locally and on the
// mirror. Files whose names do not parse are left alone. Only local failures
// are returned; mirror failures are logged and reported.
func (s *Scheduler) Evict(ctx context.Context, now time.Time, window time.Duration) ([]string, error) {
	snaps, err := listSnapshots(s.dir, s.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	cutoff := now.Add(-window)
	stale := utils.Filter(snaps, func(s Snapshot) bool {
		return s.Taken.Before(cutoff)
	})

	var evicted []string
	for _, snap := range stale {
		if err := filesystem.RemoveIfExists(snapshotPath(s.dir, snap.Name)); err != nil {
			return evicted, fmt.Errorf("failed to remove %s: %w", snap.Name, err)
		}
		evicted = append(evicted, snap.Name)
	}
	if len(evicted) > 0 {
		log.Printf("[BACKUP] evicted %d snapshot(s) older than %s", len(evicted), cutoff.Format(time.RFC3339))
	}

	if s.mirror != nil {
		if err := s.evictOffsite(ctx, cutoff); err != nil {
			log.Printf("[ERROR] failed to evict offsite snapshots: %v", err)
			s.notifier.Error(ctx, fmt.Sprintf("failed to evict offsite backups: %v", err))
		}
	}
	return evicted, nil
}

// evictOffsite removes mirrored snapshots older than cutoff, including ones
// whose local copy is already gone.
func (s *Scheduler) evictOffsite(ctx context.Context, cutoff time.Time) error {
	names, err := s.mirror.List(ctx)
	if err != nil {
		return err
	}

	var removed int
	for _, name := range names {
		taken, ok := ParseSnapshotName(name, s.loc)
		if !ok || !taken.Before(cutoff) {
			continue
		}
		if err := s.mirror.Delete(ctx, name); err != nil {
			return err
		}
		removed++
	}
	if removed > 0 {
		log.Printf("[BACKUP] evicted %d offsite snapshot(s)", removed)
	}
	return nil
}

// ListOffsite returns the mirrored snapshots, newest first. Size is not
// reported for offsite copies.
func (s *Scheduler) ListOffsite(ctx context.Context) ([]Snapshot, error) {
	if s.mirror == nil {
		return nil, apperror.Newf(apperror.CodeNotFound, "no offsite mirror configured")
	}
	names, err := s.mirror.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list offsite snapshots: %w", err)
	}

	var out []Snapshot
	for _, name := range names {
		if taken, ok := ParseSnapshotName(name, s.loc); ok {
			out = append(out, Snapshot{Name: name, Taken: taken})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Taken.After(out[j].Taken) })
	return out, nil
}

// FetchOffsite downloads a mirrored snapshot into the backup directory so it
// can be restored.
func (s *Scheduler) FetchOffsite(ctx context.Context, name string) error {
	if err := validSnapshotName(name, s.loc); err != nil {
		return err
	}
	if s.mirror == nil {
		return apperror.Newf(apperror.CodeNotFound, "no offsite mirror configured")
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.mirror.Download(ctx, name, pw))
	}()
	if err := filesystem.WriteFileAtomic(snapshotPath(s.dir, name), pr); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	log.Printf("[BACKUP] fetched offsite snapshot %s", name)
	return nil
}

// List returns the snapshots on disk, newest first.
func (s *Scheduler) List() ([]Snapshot, error) {
	return listSnapshots(s.dir, s.loc)
}

// Restore copies the named snapshot over the live database and relaunches
// the process. It is rejected while a tick is running.
func (s *Scheduler) Restore(ctx context.Context, name, by string) error {
	if err := validSnapshotName(name, s.loc); err != nil {
		return err
	}
	src := snapshotPath(s.dir, name)
	if _, err := os.Stat(src); err != nil {
		return apperror.Newf(apperror.CodeNotFound, "snapshot %s not found", name)
	}

	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRestoring)) {
		return apperror.Newf(apperror.CodeBusy, "backup is %s", s.State())
	}
	defer s.state.Store(int32(StateIdle))

	if err := s.dm.Replace(ctx, src); err != nil {
		return err
	}

	msg := fmt.Sprintf("%s restored database from %s", by, name)
	log.Printf("[BACKUP] %s", msg)
	s.journal.Record(ctx, by, msg)
	s.notifier.Info(ctx, msg)

	if s.relaunch != nil {
		return s.relaunch()
	}
	return nil
}
