package services

import (
	"testing"
	"time"

	"fantasy-sports-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory sqlite database migrated with the full schema.
// The pool is capped at one connection so concurrent test goroutines race at
// the application level while sqlite serializes the writes.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
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
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, balance int64) *models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.NewString(),
		FullName: "Test User",
		Email:    uuid.NewString() + "@example.com",
		Balance:  balance,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createTestMatch(t *testing.T, db *gorm.DB, status models.MatchStatus) *models.Match {
	t.Helper()
	match := models.Match{
		ID:             uuid.NewString(),
		League:         "T20 World Cup",
		TeamAName:      "India",
		TeamAShortName: "IND",
		TeamBName:      "Pakistan",
		TeamBShortName: "PAK",
		StartTime:      time.Now().Add(2 * time.Hour),
		Status:         status,
		IsEditable:     status == models.MatchUpcoming,
	}
	if err := db.Create(&match).Error; err != nil {
		t.Fatalf("create match: %v", err)
	}
	return &match
}

// rosterOf builds a valid roster of sequential player ids p1..pN.
func rosterOf(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, "p"+string(rune('0'+i/10))+string(rune('0'+i%10)))
	}
	return ids
}

func createTestPerformance(t *testing.T, db *gorm.DB, matchID, playerID string, mutate func(*models.PlayerPerformance)) {
	t.Helper()
	perf := models.PlayerPerformance{
		ID:       uuid.NewString(),
		MatchID:  matchID,
		PlayerID: playerID,
	}
	if mutate != nil {
		mutate(&perf)
	}
	if err := db.Create(&perf).Error; err != nil {
		t.Fatalf("create performance: %v", err)
	}
}

func walletBalance(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	return user.Balance
}

func ledgerCount(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.WalletTransaction{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return count
}
