package services

import (
	"math"

	"fantasy-sports-system/models"
)

// PointValues is the scoring configuration: one field per scoring event so the
// compiler covers every event (no free-form rule maps).
type PointValues struct {
	Run      float64
	Four     float64
	Six      float64
	Wicket   float64
	Maiden   float64
	Catch    float64
	Stumping float64
	RunOut   float64
}

var DefaultPointValues = PointValues{
	Run:      1,
	Four:     1,
	Six:      2,
	Wicket:   25,
	Maiden:   12,
	Catch:    8,
	Stumping: 12,
	RunOut:   6,
}

const (
	CaptainMultiplier     = 2.0
	ViceCaptainMultiplier = 1.5
)

// BasePoints computes one player's unmultiplied fantasy points for a match.
func (pv PointValues) BasePoints(p models.PlayerPerformance) float64 {
	return float64(p.Runs)*pv.Run +
		float64(p.Fours)*pv.Four +
		float64(p.Sixes)*pv.Six +
		float64(p.Wickets)*pv.Wicket +
		float64(p.Maidens)*pv.Maiden +
		float64(p.Catches)*pv.Catch +
		float64(p.Stumpings)*pv.Stumping +
		float64(p.RunOuts)*pv.RunOut
}

// CalculateEntryPoints scores a roster against per-player performances keyed
// by the stable player id. Players missing from the scorecard contribute 0.
// Pure function: identical inputs always produce identical output, so
// settlement reruns are reproducible. Result is floored at 0 and rounded to
// one decimal place.
func CalculateEntryPoints(playerIDs []string, captainID, viceCaptainID string, perfByPlayer map[string]models.PlayerPerformance, pv PointValues) float64 {
	var total float64
	for _, playerID := range playerIDs {
		perf, ok := perfByPlayer[playerID]
		if !ok {
			continue
		}
		base := pv.BasePoints(perf)
		switch playerID {
		case captainID:
			total += base * CaptainMultiplier
		case viceCaptainID:
			total += base * ViceCaptainMultiplier
		default:
			total += base
		}
	}
	return roundPoints(total)
}

func roundPoints(value float64) float64 {
	return math.Max(0, math.Round(value*10)/10)
}
