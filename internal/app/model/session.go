package model

import (
	"time"

	"gorm.io/datatypes"
)

// Session is the database backend row for anonymous session state
type Session struct {
	Key       string         `gorm:"primaryKey;type:varchar(64)"`
	Data      datatypes.JSON `gorm:"not null"`
	ExpiresAt time.Time      `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Session) TableName() string {
	return "sessions"
}
