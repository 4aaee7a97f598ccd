package models

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps is embedded by the club directory records.
type Timestamps struct {
	CreatedAt time.Time      `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// All lists every model migrated at startup.
func All() []any {
	return []any{
		&Brand{},
		&Club{},
		&Table{},
		&Membership{},
		&Manager{},
		&ManagerSession{},
		&Match{},
	}
}
