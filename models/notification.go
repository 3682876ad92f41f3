package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationContestJoined  NotificationType = "contest_joined"
	NotificationMatchCompleted NotificationType = "match_completed"
	NotificationPrizeCredited  NotificationType = "prize_credited"
	NotificationSystem         NotificationType = "system"
)

// Notification is an in-app message row. Delivery is best-effort: settlement
// never fails because a notification insert failed.
type Notification struct {
	ID            string           `gorm:"primaryKey" json:"id"`
	UserID        string           `gorm:"index;not null" json:"user_id"`
	Type          NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title         string           `gorm:"not null" json:"title"`
	Message       string           `json:"message"`
	ReferenceID   string           `json:"reference_id,omitempty"`
	ReferenceType string           `gorm:"type:varchar(16)" json:"reference_type,omitempty"` // match/wallet
	Metadata      datatypes.JSON   `json:"metadata,omitempty"`
	IsRead        bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt     time.Time        `json:"created_at" gorm:"autoCreateTime"`
}
