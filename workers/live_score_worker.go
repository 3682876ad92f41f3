package workers

import (
	"context"
	"math/rand"
	"time"

	"fantasy-sports-system/models"
	"fantasy-sports-system/services"
	"fantasy-sports-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LiveScoreWorker simulates ball-by-ball progress for locked (in-play)
// matches: it mutates structured performance rows, rolls the innings totals
// forward, and reuses the same points refresh the settlement path runs. The
// demo environment has no external feed; this worker stands in for one.
type LiveScoreWorker struct {
	DB          *gorm.DB
	Matches     *services.MatchService
	Contests    *services.ContestService
	Leaderboard *services.LeaderboardService
	Interval    time.Duration
	rng         *rand.Rand
}

func NewLiveScoreWorker(db *gorm.DB, matches *services.MatchService, contests *services.ContestService, leaderboard *services.LeaderboardService, interval time.Duration) *LiveScoreWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &LiveScoreWorker{
		DB:          db,
		Matches:     matches,
		Contests:    contests,
		Leaderboard: leaderboard,
		Interval:    interval,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run ticks until the context is cancelled.
func (w *LiveScoreWorker) Run(ctx context.Context) {
	utils.Log.Infow("live score worker started", "interval", w.Interval)
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Log.Infow("live score worker stopped")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *LiveScoreWorker) tick(ctx context.Context) {
	var matches []models.Match
	if err := w.DB.WithContext(ctx).
		Where("status = ?", models.MatchLocked).
		Find(&matches).Error; err != nil {
		utils.Log.Errorw("live tick: match query failed", "error", err)
		return
	}

	for i := range matches {
		if err := w.simulateTick(ctx, &matches[i]); err != nil {
			utils.Log.Errorw("live tick failed", "match_id", matches[i].ID, "error", err)
		}
	}
}

// simulateTick plays out one over for a match: a handful of deliveries for
// the batting side, a chance of a wicket credited to the fielding side.
func (w *LiveScoreWorker) simulateTick(ctx context.Context, match *models.Match) error {
	scorecard, err := w.Matches.EnsureScorecard(ctx, match)
	if err != nil {
		return err
	}

	var players []models.Player
	if err := w.DB.WithContext(ctx).
		Where("team_short_name IN ? AND is_playing = ?", []string{match.TeamAShortName, match.TeamBShortName}, true).
		Find(&players).Error; err != nil {
		return err
	}
	if len(players) == 0 {
		return nil
	}

	battingTeam := match.TeamAShortName
	fieldingTeam := match.TeamBShortName
	if w.rng.Intn(2) == 1 {
		battingTeam, fieldingTeam = fieldingTeam, battingTeam
	}

	var batters, fielders []models.Player
	for _, player := range players {
		if player.TeamShortName == battingTeam {
			batters = append(batters, player)
		} else {
			fielders = append(fielders, player)
		}
	}
	if len(batters) == 0 || len(fielders) == 0 {
		return nil
	}

	perfByPlayer, err := w.loadPerformances(ctx, scorecard.ID, match.ID)
	if err != nil {
		return err
	}
	touched := make(map[string]*models.PlayerPerformance)
	get := func(p models.Player) *models.PlayerPerformance {
		if perf, ok := touched[p.ID]; ok {
			return perf
		}
		perf, ok := perfByPlayer[p.ID]
		if !ok {
			perf = &models.PlayerPerformance{
				ID:            uuid.NewString(),
				ScorecardID:   scorecard.ID,
				MatchID:       match.ID,
				PlayerID:      p.ID,
				PlayerName:    p.FullName,
				TeamShortName: p.TeamShortName,
			}
		}
		touched[p.ID] = perf
		return perf
	}

	overRuns, overWickets := 0, 0
	bowler := get(fielders[w.rng.Intn(len(fielders))])
	for ball := 0; ball < 6; ball++ {
		batter := get(batters[w.rng.Intn(len(batters))])
		batter.BallsFaced++

		if w.rng.Intn(6) == 0 && overWickets == 0 {
			overWickets++
			switch w.rng.Intn(4) {
			case 0:
				get(fielders[w.rng.Intn(len(fielders))]).Catches++
				bowler.Wickets++
			case 1:
				get(fielders[w.rng.Intn(len(fielders))]).RunOuts++
			case 2:
				get(fielders[w.rng.Intn(len(fielders))]).Stumpings++
				bowler.Wickets++
			default:
				bowler.Wickets++
			}
			continue
		}

		runs := w.rng.Intn(7)
		batter.Runs += runs
		overRuns += runs
		switch runs {
		case 4:
			batter.Fours++
		case 6:
			batter.Sixes++
		}
	}
	bowler.RunsConceded += overRuns
	if overRuns == 0 {
		bowler.Maidens++
	}

	rows := make([]models.PlayerPerformance, 0, len(touched))
	for _, perf := range touched {
		rows = append(rows, *perf)
	}
	err = w.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "match_id"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"runs", "balls_faced", "fours", "sixes",
				"wickets", "maidens", "runs_conceded",
				"catches", "stumpings", "run_outs",
			}),
		}).Create(&rows).Error; err != nil {
			return err
		}
		return tx.Model(&models.InningsScore{}).
			Where("scorecard_id = ? AND team_short_name = ?", scorecard.ID, battingTeam).
			Updates(map[string]interface{}{
				"runs":    gorm.Expr("runs + ?", overRuns),
				"wickets": gorm.Expr("wickets + ?", overWickets),
				"overs":   gorm.Expr("overs + 1"),
			}).Error
	})
	if err != nil {
		return err
	}

	updated, err := w.Contests.RefreshPoints(ctx, match.ID)
	if err != nil {
		return err
	}
	if w.Leaderboard != nil {
		w.Leaderboard.InvalidateCache(ctx, match.ID)
	}
	utils.Log.Debugw("live tick applied",
		"match_id", match.ID, "batting", battingTeam,
		"runs", overRuns, "wickets", overWickets, "entries_updated", updated)
	return nil
}

func (w *LiveScoreWorker) loadPerformances(ctx context.Context, scorecardID, matchID string) (map[string]*models.PlayerPerformance, error) {
	var rows []models.PlayerPerformance
	if err := w.DB.WithContext(ctx).Where("match_id = ?", matchID).Find(&rows).Error; err != nil {
		return nil, err
	}
	perfByPlayer := make(map[string]*models.PlayerPerformance, len(rows))
	for i := range rows {
		perfByPlayer[rows[i].PlayerID] = &rows[i]
	}
	return perfByPlayer, nil
}
