package models

import (
	"time"

	"cue-club-system/utils"

	"gorm.io/gorm"
)

type TableStatus string

const (
	TableEmpty       TableStatus = "empty"
	TableInUse       TableStatus = "inuse"
	TableMaintenance TableStatus = "maintenance"
)

type Brand struct {
	ID   string `gorm:"primaryKey;size:36" json:"id"`
	Name string `gorm:"not null" json:"name"`
	Timestamps
}

type Club struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	BrandID string `gorm:"index;size:36;not null" json:"brandId"`
	Name    string `gorm:"not null" json:"name"`
	Timestamps
}

// Table is a physical billiard table. Status is the only lock the match
// lifecycle relies on: a table hosts at most one active match.
type Table struct {
	ID     string      `gorm:"primaryKey;size:36" json:"id"`
	ClubID string      `gorm:"index;size:36;not null" json:"clubId"`
	Name   string      `json:"name"`
	Status TableStatus `gorm:"type:varchar(16);default:empty;not null" json:"status"`
	Timestamps
}

// Membership is a registered player of a brand. PhoneNumber and NameKey are
// normalized on save so lookups can compare them directly.
type Membership struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	BrandID     string `gorm:"index;size:36;not null" json:"brandId"`
	FullName    string `gorm:"not null" json:"fullName"`
	PhoneNumber string `gorm:"index" json:"phoneNumber"`
	NameKey     string `gorm:"index" json:"-"`
	IsBanned    bool   `gorm:"default:false" json:"isBanned"`
	Timestamps
}

func (m *Membership) BeforeSave(tx *gorm.DB) error {
	m.PhoneNumber = utils.NormalizePhone(m.PhoneNumber)
	m.NameKey = utils.NameKey(m.FullName)
	return nil
}

type Manager struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	ClubID       string `gorm:"index;size:36;not null" json:"clubId"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FullName     string `json:"fullName"`
	Timestamps
}

// ManagerSession is an opaque bearer token issued at login.
type ManagerSession struct {
	Token     string    `gorm:"primaryKey;size:64" json:"token"`
	ManagerID string    `gorm:"index;size:36;not null" json:"managerId"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
