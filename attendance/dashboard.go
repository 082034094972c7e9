package attendance

import (
	"context"
	"time"

	"github.com/maeven-tapa/eals/model"
	"gorm.io/gorm"
)

// DashboardStats are derived from the employee and attendance tables; nothing
// here is stored.
type DashboardStats struct {
	Date         string `json:"date"`
	Total        int64  `json:"total"`
	Active       int64  `json:"active"`
	PresentToday int64  `json:"presentToday"`
	Late         int64  `json:"late"`
	Absent       int64  `json:"absent"`
}

func (e *Engine) Stats(ctx context.Context, now time.Time) (DashboardStats, error) {
	stats := DashboardStats{Date: e.Today(now)}

	err := e.dm.Exec(ctx, func(db *gorm.DB) error {
		if err := db.Model(&model.Employee{}).Count(&stats.Total).Error; err != nil {
			return err
		}
		if err := db.Model(&model.Employee{}).
			Where("status = ?", model.StatusActive).
			Count(&stats.Active).Error; err != nil {
			return err
		}
		if err := db.Model(&model.AttendanceLog{}).
			Where("date = ?", stats.Date).
			Distinct("employee_id").
			Count(&stats.PresentToday).Error; err != nil {
			return err
		}
		if err := db.Model(&model.AttendanceLog{}).
			Where("date = ? AND remarks = ?", stats.Date, model.RemarksLate).
			Distinct("employee_id").
			Count(&stats.Late).Error; err != nil {
			return err
		}

		today := db.Model(&model.AttendanceLog{}).Select("employee_id").Where("date = ?", stats.Date)
		return db.Model(&model.Employee{}).
			Where("status = ? AND is_hr = ?", model.StatusActive, false).
			Where("employee_id NOT IN (?)", today).
			Count(&stats.Absent).Error
	})
	return stats, err
}
