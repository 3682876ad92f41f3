package models

import "time"

// Scorecard is the per-match summary row. Detailed per-player numbers live in
// PlayerPerformance; innings totals in InningsScore.
type Scorecard struct {
	ID         string `gorm:"primaryKey" json:"id"`
	MatchID    string `gorm:"uniqueIndex;not null" json:"match_id"`
	ResultText string `json:"result_text,omitempty"`

	Innings      []InningsScore      `json:"innings,omitempty" gorm:"foreignKey:ScorecardID"`
	Performances []PlayerPerformance `json:"performances,omitempty" gorm:"foreignKey:ScorecardID"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// InningsScore is one team's running total within a scorecard.
type InningsScore struct {
	ID            string  `gorm:"primaryKey" json:"id"`
	ScorecardID   string  `gorm:"index;not null" json:"scorecard_id"`
	TeamShortName string  `gorm:"not null" json:"team_short_name"`
	Runs          int     `gorm:"default:0" json:"runs"`
	Wickets       int     `gorm:"default:0" json:"wickets"`
	Overs         float64 `gorm:"default:0" json:"overs"`
	SortOrder     int     `gorm:"column:sort_order;default:0" json:"sort_order"`
}

// PlayerPerformance is one player's aggregate line for a match, keyed by the
// stable PlayerID. Updated in place on every live tick; read-only to scoring.
type PlayerPerformance struct {
	ID          string `gorm:"primaryKey" json:"id"`
	ScorecardID string `gorm:"index;not null" json:"scorecard_id"`
	MatchID     string `gorm:"index:idx_perf_match_player,unique,priority:1;not null" json:"match_id"`
	PlayerID    string `gorm:"index:idx_perf_match_player,unique,priority:2;not null" json:"player_id"`

	PlayerName    string `json:"player_name"`
	TeamShortName string `json:"team_short_name"`

	Runs         int `gorm:"default:0" json:"runs"`
	BallsFaced   int `gorm:"default:0" json:"balls_faced"`
	Fours        int `gorm:"default:0" json:"fours"`
	Sixes        int `gorm:"default:0" json:"sixes"`
	Wickets      int `gorm:"default:0" json:"wickets"`
	Maidens      int `gorm:"default:0" json:"maidens"`
	RunsConceded int `gorm:"default:0" json:"runs_conceded"`
	Catches      int `gorm:"default:0" json:"catches"`
	Stumpings    int `gorm:"default:0" json:"stumpings"`
	RunOuts      int `gorm:"default:0" json:"run_outs"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
