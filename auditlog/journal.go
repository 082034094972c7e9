package auditlog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Recorder is what other components need from the journal.
type Recorder interface {
	Record(ctx context.Context, entity, message string)
}

type discard struct{}

func (discard) Record(context.Context, string, string) {}

// Discard drops every entry.
var Discard Recorder = discard{}

// Journal writes one line per event to resources/logs/YYYYMMDD.txt and keeps
// the per-day row in system_logs in step with it.
type Journal struct {
	dm  *core.DatabaseManager
	dir string
	now func() time.Time
	loc *time.Location
}

type Option func(*Journal)

// WithLocation sets the zone whose calendar date picks the journal file.
// Defaults to time.Local, matching the attendance engine.
func WithLocation(loc *time.Location) Option {
	return func(j *Journal) {
		if loc != nil {
			j.loc = loc
		}
	}
}

func New(dm *core.DatabaseManager, dir string, now func() time.Time, opts ...Option) *Journal {
	if now == nil {
		now = time.Now
	}
	j := &Journal{dm: dm, dir: dir, now: now, loc: time.Local}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) pathFor(day string) string {
	return filepath.Join(j.dir, day+".txt")
}

// Record appends message to today's journal. It never fails the caller; errors
// are printed and dropped.
func (j *Journal) Record(ctx context.Context, entity, message string) {
	now := j.now().In(j.loc)
	day := now.Format(model.JournalDateLayout)
	path := j.pathFor(day)
	line := fmt.Sprintf("%s - %s\n", now.Format(time.RFC3339), message)

	err := j.dm.Exec(ctx, func(db *gorm.DB) error {
		if err := appendLine(path, line); err != nil {
			return err
		}

		entry := model.SystemLogEntry{
			Date:               day,
			Path:               path,
			CreatedAt:          now,
			LastModifiedAt:     now,
			EntityStarted:      entity,
			StoppedToTheEntity: entity,
		}
		return db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_modified_at":      now,
				"stopped_to_the_entity": entity,
			}),
		}).Create(&entry).Error
	})
	if err != nil {
		log.Printf("[ERROR] audit log %s: %v", day, err)
	}
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Read returns the journal text for day (YYYYMMDD).
func (j *Journal) Read(day string) (string, error) {
	if _, err := time.Parse(model.JournalDateLayout, day); err != nil {
		return "", apperror.Newf(apperror.CodeValidation, "invalid journal date %q", day)
	}

	data, err := os.ReadFile(j.pathFor(day))
	if errors.Is(err, os.ErrNotExist) {
		return "", apperror.Newf(apperror.CodeNotFound, "no journal for %s", day)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read journal %s: %w", day, err)
	}
	return string(data), nil
}

// Days lists the per-day rows, newest first.
func (j *Journal) Days(ctx context.Context) ([]model.SystemLogEntry, error) {
	var entries []model.SystemLogEntry
	err := j.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Order("date DESC").Find(&entries).Error
	})
	return entries, err
}
