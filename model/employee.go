package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"

	HRDepartment = "Human Resources"
	HRPosition   = "HR Staff"
)

type Employee struct {
	EmployeeID      string         `gorm:"primaryKey;column:employee_id" json:"employeeId"`
	FirstName       string         `gorm:"not null;uniqueIndex:idx_employees_name" json:"firstName"`
	LastName        string         `gorm:"not null;uniqueIndex:idx_employees_name" json:"lastName"`
	MiddleInitial   string         `gorm:"size:1" json:"middleInitial"`
	DateOfBirth     datatypes.Date `json:"dateOfBirth"`
	Gender          string         `json:"gender"`
	Department      string         `json:"department"`
	Position        string         `json:"position"`
	Shift           string         `gorm:"not null" json:"shift"`
	IsHR            bool           `gorm:"column:is_hr;not null;default:false" json:"isHr"`
	Status          string         `gorm:"not null;default:Active;index" json:"status"`
	PasswordHash    string         `gorm:"not null" json:"-"`
	PasswordChanged bool           `gorm:"not null;default:false" json:"passwordChanged"`
	ProfilePicture  string         `json:"profilePicture"`
	Email           string         `gorm:"index" json:"email"`

	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `gorm:"<-:create" json:"createdAt"`
	ModifiedBy string    `json:"modifiedBy"`
	ModifiedAt time.Time `gorm:"autoUpdateTime" json:"modifiedAt"`
}

func (Employee) TableName() string {
	return "employees"
}

func (e *Employee) FullName() string {
	if e.MiddleInitial != "" {
		return e.FirstName + " " + e.MiddleInitial + ". " + e.LastName
	}
	return e.FirstName + " " + e.LastName
}

func (e *Employee) Active() bool {
	return e.Status == StatusActive
}
