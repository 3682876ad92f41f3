package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContestEntry is one user's fantasy roster for one match. The
// (match_id, user_id) pair is unique; Points is recomputed on every scorecard
// update and again, authoritatively, during settlement.
type ContestEntry struct {
	ID      string `gorm:"primaryKey" json:"id"`
	MatchID string `gorm:"index:idx_entry_match_user,unique,priority:1;not null" json:"match_id"`
	UserID  string `gorm:"index:idx_entry_match_user,unique,priority:2;not null" json:"user_id"`

	TeamID        string                      `gorm:"not null" json:"team_id"`
	TeamName      string                      `gorm:"not null" json:"team_name"`
	PlayerIDs     datatypes.JSONSlice[string] `json:"player_ids"`
	CaptainID     string                      `json:"captain_id,omitempty"`
	ViceCaptainID string                      `json:"vice_captain_id,omitempty"`

	Points float64 `gorm:"default:0" json:"points"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
