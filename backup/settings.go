package backup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/maeven-tapa/eals/apperror"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Unit string

const (
	UnitHours  Unit = "Hours"
	UnitDays   Unit = "Days"
	UnitWeeks  Unit = "Weeks"
	UnitMonths Unit = "Months"
)

// Units lists the accepted units in display order.
var Units = []Unit{UnitHours, UnitDays, UnitWeeks, UnitMonths}

// ParseUnit accepts the unit name in any case, singular or plural.
func ParseUnit(s string) (Unit, error) {
	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	for _, u := range Units {
		if strings.TrimSuffix(strings.ToLower(string(u)), "s") == key {
			return u, nil
		}
	}
	return "", apperror.Newf(apperror.CodeValidation, "unknown unit %q", s)
}

// Span returns n units as a duration. A month is 30 days.
func (u Unit) Span(n int) time.Duration {
	var d time.Duration
	switch u {
	case UnitHours:
		d = time.Hour
	case UnitDays:
		d = 24 * time.Hour
	case UnitWeeks:
		d = 7 * 24 * time.Hour
	case UnitMonths:
		d = 30 * 24 * time.Hour
	}
	return time.Duration(n) * d
}

// Policy is the backup configuration held in the settings row.
type Policy struct {
	Frequency          int  `json:"frequency" binding:"required,min=1"`
	Unit               Unit `json:"unit" binding:"required"`
	RetentionEnabled   bool `json:"retentionEnabled"`
	RetentionFrequency int  `json:"retentionFrequency"`
	RetentionUnit      Unit `json:"retentionUnit"`
}

func (p Policy) Cadence() time.Duration {
	return p.Unit.Span(p.Frequency)
}

// Window is the retention window; zero when retention is off.
func (p Policy) Window() time.Duration {
	if !p.RetentionEnabled {
		return 0
	}
	return p.RetentionUnit.Span(p.RetentionFrequency)
}

func (p *Policy) Normalize() error {
	var errs []error
	if p.Frequency < 1 {
		errs = append(errs, errors.New("backup frequency must be at least 1"))
	}
	if u, err := ParseUnit(string(p.Unit)); err != nil {
		errs = append(errs, errors.New("backup unit must be Hours, Days, Weeks or Months"))
	} else {
		p.Unit = u
	}

	if p.RetentionEnabled {
		if p.RetentionFrequency < 1 {
			errs = append(errs, errors.New("retention frequency must be at least 1"))
		}
		if u, err := ParseUnit(string(p.RetentionUnit)); err != nil {
			errs = append(errs, errors.New("retention unit must be Hours, Days, Weeks or Months"))
		} else {
			p.RetentionUnit = u
		}
	}

	if len(errs) > 0 {
		return apperror.Wrap(apperror.CodeValidation, "invalid backup settings", errors.Join(errs...))
	}
	return nil
}

// SaveSettings upserts the singleton settings row.
func SaveSettings(ctx context.Context, dm *core.DatabaseManager, p Policy, by string) error {
	if err := p.Normalize(); err != nil {
		return err
	}

	row := model.SystemSettings{
		ID:                 model.SystemSettingsID,
		BackupFrequency:    p.Frequency,
		BackupUnit:         string(p.Unit),
		RetentionEnabled:   p.RetentionEnabled,
		RetentionFrequency: p.RetentionFrequency,
		RetentionUnit:      string(p.RetentionUnit),
		CreatedBy:          by,
		ModifiedBy:         by,
	}

	return dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"backup_frequency", "backup_unit",
				"retention_enabled", "retention_frequency", "retention_unit",
				"modified_by", "modified_at",
			}),
		}).Create(&row).Error
	})
}

// LoadSettings returns nil when no configuration has been saved.
func LoadSettings(ctx context.Context, dm *core.DatabaseManager) (*Policy, *model.SystemSettings, error) {
	var row model.SystemSettings
	found := false
	err := dm.Exec(ctx, func(db *gorm.DB) error {
		res := db.Limit(1).Find(&row, model.SystemSettingsID)
		found = res.RowsAffected > 0
		return res.Error
	})
	if err != nil || !found {
		return nil, nil, err
	}

	p := &Policy{
		Frequency:          row.BackupFrequency,
		Unit:               Unit(row.BackupUnit),
		RetentionEnabled:   row.RetentionEnabled,
		RetentionFrequency: row.RetentionFrequency,
		RetentionUnit:      Unit(row.RetentionUnit),
	}
	return p, &row, nil
}
