package model

import "time"

const BootstrapAdminID = "admin-01-0001"

type Admin struct {
	AdminID         string `gorm:"primaryKey;column:admin_id" json:"adminId"`
	PasswordHash    string `gorm:"not null" json:"-"`
	BootstrapHash   string `gorm:"not null" json:"-"`
	PasswordChanged bool   `gorm:"not null;default:false" json:"passwordChanged"`

	CreatedAt time.Time `gorm:"<-:create" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Admin) TableName() string {
	return "admins"
}
