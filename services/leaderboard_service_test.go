package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fantasy-sports-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func seedLeaderboardEntries(t *testing.T, db *gorm.DB, matchID string, points []float64) []string {
	t.Helper()
	userIDs := make([]string, 0, len(points))
	for i, p := range points {
		user := createTestUser(t, db, 0)
		userIDs = append(userIDs, user.ID)
		entry := models.ContestEntry{
			ID:        uuid.NewString(),
			MatchID:   matchID,
			UserID:    user.ID,
			TeamID:    fmt.Sprintf("t%d", i),
			TeamName:  fmt.Sprintf("Team %d", i),
			PlayerIDs: rosterOf(RosterSize),
			Points:    p,
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("create entry: %v", err)
		}
	}
	return userIDs
}

func TestGetLeaderboardTieAwareRanks(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)
	match := createTestMatch(t, db, models.MatchLocked)
	seedLeaderboardEntries(t, db, match.ID, []float64{80, 80, 60, 40})

	board, err := svc.GetLeaderboard(context.Background(), match.ID, "")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if board.Participants != 4 || len(board.Rows) != 4 {
		t.Fatalf("board = %+v", board)
	}
	wantRanks := []int{1, 1, 3, 4}
	for i, row := range board.Rows {
		if row.Rank != wantRanks[i] {
			t.Fatalf("row %d rank = %d, want %d", i, row.Rank, wantRanks[i])
		}
		if row.Prize != 0 {
			t.Fatalf("prize shown before completion: %d", row.Prize)
		}
	}
}

func TestGetLeaderboardPrizesOnCompleted(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)
	match := createTestMatch(t, db, models.MatchCompleted)
	userIDs := seedLeaderboardEntries(t, db, match.ID, []float64{90, 90, 30})

	board, err := svc.GetLeaderboard(context.Background(), match.ID, userIDs[2])
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	// Two-way tie at the top pools 1500, shown as 750 each.
	if board.Rows[0].Prize != 750 || board.Rows[1].Prize != 750 {
		t.Fatalf("tied prizes = %d/%d, want 750 each", board.Rows[0].Prize, board.Rows[1].Prize)
	}
	if board.Rows[2].Prize != PrizeThird {
		t.Fatalf("third prize = %d, want %d", board.Rows[2].Prize, PrizeThird)
	}
	if board.MyEntry == nil || board.MyEntry.Rank != 3 || board.MyEntry.Prize != PrizeThird {
		t.Fatalf("my entry = %+v", board.MyEntry)
	}
}

func TestGetLeaderboardTopNCap(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)
	match := createTestMatch(t, db, models.MatchLocked)

	points := make([]float64, leaderboardTopN+5)
	for i := range points {
		points[i] = float64(1000 - i)
	}
	userIDs := seedLeaderboardEntries(t, db, match.ID, points)

	board, err := svc.GetLeaderboard(context.Background(), match.ID, userIDs[len(userIDs)-1])
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Rows) != leaderboardTopN {
		t.Fatalf("rows = %d, want %d", len(board.Rows), leaderboardTopN)
	}
	if board.Participants != leaderboardTopN+5 {
		t.Fatalf("participants = %d", board.Participants)
	}
	// Caller is outside the top rows but still gets their own line.
	if board.MyEntry == nil || board.MyEntry.Rank != leaderboardTopN+5 {
		t.Fatalf("my entry = %+v", board.MyEntry)
	}
}

func TestGetLeaderboardUnknownMatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)

	_, err := svc.GetLeaderboard(context.Background(), "ghost", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListMatchContests(t *testing.T) {
	db := newTestDB(t)
	svc := NewLeaderboardService(db, nil)
	ctx := context.Background()

	upcoming := createTestMatch(t, db, models.MatchUpcoming)
	createTestMatch(t, db, models.MatchCompleted)
	seedLeaderboardEntries(t, db, upcoming.ID, []float64{0, 0, 0})

	listings, err := svc.ListMatchContests(ctx, "", 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("listings = %d, want 1 (default excludes completed)", len(listings))
	}
	listing := listings[0]
	if listing.Participants != 3 || listing.EntryFee != ContestJoinFee {
		t.Fatalf("listing = %+v", listing)
	}
	if listing.PrizePool != 3*ContestJoinFee {
		t.Fatalf("prize pool = %d, want %d", listing.PrizePool, 3*ContestJoinFee)
	}

	completedOnly, err := svc.ListMatchContests(ctx, string(models.MatchCompleted), 50)
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if len(completedOnly) != 1 || completedOnly[0].Participants != 0 {
		t.Fatalf("completed listings = %+v", completedOnly)
	}

	if _, err := svc.ListMatchContests(ctx, "bogus", 50); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bogus status: err = %v, want ErrInvalidInput", err)
	}
}
