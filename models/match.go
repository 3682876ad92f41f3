package models

import "time"

type MatchStatus string

const (
	MatchUpcoming  MatchStatus = "upcoming"
	MatchLocked    MatchStatus = "locked"
	MatchCompleted MatchStatus = "completed"
	MatchAbandoned MatchStatus = "abandoned"
)

type MatchResult string

const (
	ResultTeamA    MatchResult = "team_a"
	ResultTeamB    MatchResult = "team_b"
	ResultDraw     MatchResult = "draw"
	ResultNoResult MatchResult = "no_result"
)

// Match is the contest unit. Status follows
// upcoming → locked → completed, with abandoned reachable from
// upcoming/locked. IsEditable is true only while upcoming.
type Match struct {
	ID              string      `gorm:"primaryKey" json:"id"`
	ExternalMatchID string      `gorm:"index" json:"external_match_id,omitempty"`
	Sport           string      `gorm:"type:varchar(32);default:'cricket'" json:"sport"`
	League          string      `gorm:"index;not null" json:"league"`
	Season          string      `json:"season,omitempty"`
	TeamAName       string      `gorm:"not null" json:"team_a_name"`
	TeamAShortName  string      `gorm:"not null" json:"team_a_short_name"`
	TeamBName       string      `gorm:"not null" json:"team_b_name"`
	TeamBShortName  string      `gorm:"not null" json:"team_b_short_name"`
	Venue           string      `json:"venue,omitempty"`
	StartTime       time.Time   `gorm:"index;not null" json:"start_time"`
	Status          MatchStatus `gorm:"type:varchar(16);default:'upcoming';index" json:"status"`
	IsEditable      bool        `gorm:"default:true" json:"is_editable"`

	// Settlement outcome, set when completed
	Result              MatchResult `gorm:"type:varchar(16)" json:"result,omitempty"`
	WinnerTeamShortName string      `json:"winner_team_short_name,omitempty"`
	Summary             string      `json:"summary,omitempty"`
	SettledAt           *time.Time  `json:"settled_at,omitempty"`

	Timestamps
}

// Label returns the display name used in notifications, e.g. "IND vs PAK".
func (m *Match) Label() string {
	return m.TeamAShortName + " vs " + m.TeamBShortName
}
