package model

import "time"

type Feedback struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Message    string    `gorm:"not null" json:"message"`
	EmployeeID string    `gorm:"not null;index" json:"employeeId"`
	CreatedAt  time.Time `gorm:"<-:create" json:"createdAt"`
}

func (Feedback) TableName() string {
	return "feedback"
}
