package model

import "time"

// SystemSettingsID is the primary key of the only settings row.
const SystemSettingsID = 1

type SystemSettings struct {
	ID                 uint   `gorm:"primaryKey" json:"-"`
	BackupFrequency    int    `gorm:"not null" json:"backupFrequency"`
	BackupUnit         string `gorm:"not null" json:"backupUnit"`
	RetentionEnabled   bool   `gorm:"not null;default:false" json:"retentionEnabled"`
	RetentionFrequency int    `json:"retentionFrequency"`
	RetentionUnit      string `json:"retentionUnit"`

	CreatedBy  string    `json:"createdBy"`
	CreatedAt  time.Time `gorm:"<-:create" json:"createdAt"`
	ModifiedBy string    `json:"modifiedBy"`
	ModifiedAt time.Time `gorm:"autoUpdateTime" json:"modifiedAt"`
}

func (SystemSettings) TableName() string {
	return "system_settings"
}
