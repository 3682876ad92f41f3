package models

// Player is a catalog entry for roster selection. Scorecard rows join back to
// it by ID; name strings are display-only.
type Player struct {
	ID            string  `gorm:"primaryKey" json:"id"`
	FullName      string  `gorm:"not null" json:"full_name"`
	TeamShortName string  `gorm:"index;not null" json:"team_short_name"`
	Role          string  `gorm:"type:varchar(16)" json:"role"` // batter/bowler/allrounder/keeper
	CreditValue   float64 `gorm:"default:8" json:"credit_value"`
	IsPlaying     bool    `gorm:"default:true;index" json:"is_playing"`

	Timestamps
}
