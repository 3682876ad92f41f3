package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the platform account record. Balance is a closed virtual currency
// denormalized from the wallet ledger; only the wallet service may change it.
type User struct {
	ID       string `gorm:"primaryKey" json:"id"`
	FullName string `json:"full_name"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Role     string `gorm:"type:varchar(16);default:'user'" json:"role"` // user/admin
	Balance  int64  `gorm:"not null;default:0" json:"balance"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
