package workers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"fantasy-sports-system/models"
	"fantasy-sports-system/services"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWorkerFixture(t *testing.T) (*LiveScoreWorker, *gorm.DB, *models.Match, []string) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Match{},
		&models.Player{},
		&models.Scorecard{},
		&models.InningsScore{},
		&models.PlayerPerformance{},
		&models.ContestEntry{},
		&models.WalletTransaction{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	match := models.Match{
		ID:             uuid.NewString(),
		League:         "T20 World Cup",
		TeamAName:      "India",
		TeamAShortName: "IND",
		TeamBName:      "Pakistan",
		TeamBShortName: "PAK",
		StartTime:      time.Now().Add(-time.Hour),
		Status:         models.MatchLocked,
	}
	if err := db.Create(&match).Error; err != nil {
		t.Fatalf("create match: %v", err)
	}

	playerIDs := make([]string, 0, 22)
	for i := 0; i < 22; i++ {
		team := "IND"
		if i >= 11 {
			team = "PAK"
		}
		player := models.Player{
			ID:            uuid.NewString(),
			FullName:      fmt.Sprintf("Player %d", i+1),
			TeamShortName: team,
			IsPlaying:     true,
		}
		if err := db.Create(&player).Error; err != nil {
			t.Fatalf("create player: %v", err)
		}
		playerIDs = append(playerIDs, player.ID)
	}

	wallet := services.NewWalletService(db)
	matchSvc := services.NewMatchService(db, wallet)
	contestSvc := services.NewContestService(db, wallet, services.NewNotificationService(db))
	worker := NewLiveScoreWorker(db, matchSvc, contestSvc, nil, time.Second)
	return worker, db, &match, playerIDs
}

func TestSimulateTickAdvancesScorecard(t *testing.T) {
	worker, db, match, playerIDs := newWorkerFixture(t)
	ctx := context.Background()

	// One entry rostering the first eleven players.
	user := models.User{ID: uuid.NewString(), FullName: "Fan", Email: "fan@example.com", Balance: 0}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	entry := models.ContestEntry{
		ID:        uuid.NewString(),
		MatchID:   match.ID,
		UserID:    user.ID,
		TeamID:    "t1",
		TeamName:  "Fan XI",
		PlayerIDs: playerIDs[:11],
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("create entry: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := worker.simulateTick(ctx, match); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	var innings []models.InningsScore
	if err := db.Find(&innings).Error; err != nil {
		t.Fatalf("load innings: %v", err)
	}
	if len(innings) != 2 {
		t.Fatalf("innings = %d, want 2", len(innings))
	}
	totalOvers := innings[0].Overs + innings[1].Overs
	if totalOvers != 10 {
		t.Fatalf("overs = %v, want 10 after 10 ticks", totalOvers)
	}

	var perfCount int64
	if err := db.Model(&models.PlayerPerformance{}).Where("match_id = ?", match.ID).Count(&perfCount).Error; err != nil {
		t.Fatalf("count performances: %v", err)
	}
	if perfCount == 0 {
		t.Fatal("no performance rows after ticks")
	}

	// Innings runs must match the batting performances they aggregate.
	for _, inn := range innings {
		var sum struct{ Runs int }
		if err := db.Model(&models.PlayerPerformance{}).
			Select("coalesce(sum(runs), 0) as runs").
			Where("match_id = ? AND team_short_name = ?", match.ID, inn.TeamShortName).
			Scan(&sum).Error; err != nil {
			t.Fatalf("sum runs: %v", err)
		}
		if sum.Runs != inn.Runs {
			t.Fatalf("team %s: innings runs %d != performance sum %d", inn.TeamShortName, inn.Runs, sum.Runs)
		}
	}
}

func TestSimulateTickSkipsMatchesWithoutPlayers(t *testing.T) {
	worker, db, match, _ := newWorkerFixture(t)
	if err := db.Where("1 = 1").Delete(&models.Player{}).Error; err != nil {
		t.Fatalf("clear players: %v", err)
	}

	if err := worker.simulateTick(context.Background(), match); err != nil {
		t.Fatalf("tick without players: %v", err)
	}
	var perfCount int64
	if err := db.Model(&models.PlayerPerformance{}).Count(&perfCount).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if perfCount != 0 {
		t.Fatalf("performances = %d, want 0", perfCount)
	}
}
