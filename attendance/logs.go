package attendance

import (
	"context"

	"github.com/maeven-tapa/eals/model"
	"gorm.io/gorm"
)

const defaultLogLimit = 500

// LogFilter narrows the attendance log viewer. Dates are inclusive YYYY-MM-DD.
type LogFilter struct {
	EmployeeID string `form:"employeeId"`
	From       string `form:"from"`
	To         string `form:"to"`
	Limit      int    `form:"limit"`
}

// Logs returns matching rows, newest first.
func (e *Engine) Logs(ctx context.Context, f LogFilter) ([]model.AttendanceLog, error) {
	if f.Limit <= 0 || f.Limit > defaultLogLimit {
		f.Limit = defaultLogLimit
	}

	var rows []model.AttendanceLog
	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		q := db.Model(&model.AttendanceLog{})
		if f.EmployeeID != "" {
			q = q.Where("employee_id = ?", f.EmployeeID)
		}
		if f.From != "" {
			q = q.Where("date >= ?", f.From)
		}
		if f.To != "" {
			q = q.Where("date <= ?", f.To)
		}
		return q.Order("date DESC, id DESC").Limit(f.Limit).Find(&rows).Error
	})
	return rows, err
}

// Day returns one employee's events for a date in insertion order.
func (e *Engine) Day(ctx context.Context, employeeID, date string) ([]model.AttendanceLog, error) {
	var rows []model.AttendanceLog
	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("employee_id = ? AND date = ?", employeeID, date).
			Order("id ASC").
			Find(&rows).Error
	})
	return rows, err
}
