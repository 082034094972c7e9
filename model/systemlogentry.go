package model

import "time"

const JournalDateLayout = "20060102"

type SystemLogEntry struct {
	Date               string    `gorm:"primaryKey" json:"date"`
	Path               string    `gorm:"not null" json:"path"`
	CreatedAt          time.Time `gorm:"<-:create" json:"createdAt"`
	LastModifiedAt     time.Time `json:"lastModifiedAt"`
	EntityStarted      string    `json:"entityStarted"`
	StoppedToTheEntity string    `json:"stoppedToTheEntity"`
}

func (SystemLogEntry) TableName() string {
	return "system_logs"
}
