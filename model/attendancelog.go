package model

import "time"

const (
	RemarksClockIn  = "Clock In"
	RemarksClockOut = "Clock Out"

	// RemarksLate is counted by the dashboard but not written by the attendance engine.
	RemarksLate = "late"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

type AttendanceLog struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeID string    `gorm:"not null;index:idx_attendance_employee_date,priority:1" json:"employeeId"`
	Date       string    `gorm:"not null;index:idx_attendance_employee_date,priority:2;index" json:"date"`
	Time       string    `gorm:"not null" json:"time"`
	Remarks    string    `gorm:"not null" json:"remarks"`
	RecordedAt time.Time `gorm:"not null;<-:create" json:"recordedAt"`
}

func (AttendanceLog) TableName() string {
	return "attendance_logs"
}
