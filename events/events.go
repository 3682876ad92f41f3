package events

// Kafka topics for settlement outcomes consumed downstream
// (push delivery, analytics).
const (
	TopicMatchSettled  = "fantasy.match.settled"
	TopicPrizeCredited = "fantasy.prize.credited"
)

// MatchSettled is emitted once per effective settlement run.
type MatchSettled struct {
	MatchID               string `json:"match_id"`
	CreditedCount         int    `json:"credited_count"`
	AlreadyCreditedCount  int    `json:"already_credited_count"`
	TotalPrizeDistributed int64  `json:"total_prize_distributed"`
	TsUnixMs              int64  `json:"ts_unix_ms"`
}

// PrizeCredited is emitted for each newly credited winner.
type PrizeCredited struct {
	UserID   string `json:"user_id"`
	MatchID  string `json:"match_id"`
	Rank     int    `json:"rank"`
	Amount   int64  `json:"amount"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
