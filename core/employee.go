package core

import (
	"errors"

	"github.com/maeven-tapa/eals/model"
	"gorm.io/gorm"
)

// FindEmployeeByID returns nil, nil when no employee has the id.
func FindEmployeeByID(db *gorm.DB, id string) (*model.Employee, error) {
	var emp model.Employee
	result := db.Where("employee_id = ?", id).Take(&emp)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil // not found
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &emp, nil
}

// FindAdminByID returns nil, nil when no admin has the id.
func FindAdminByID(db *gorm.DB, id string) (*model.Admin, error) {
	var admin model.Admin
	result := db.Where("admin_id = ?", id).Take(&admin)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &admin, nil
}

func CountAdmins(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&model.Admin{}).Count(&n).Error
	return n, err
}
