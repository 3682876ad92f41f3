package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fantasy-sports-system/models"
	"fantasy-sports-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	leaderboardTopN     = 20
	leaderboardCacheTTL = 15 * time.Second
)

// LeaderboardService serves contest ranking reads. Points on the leaderboard
// are advisory until settlement; a short redis cache absorbs polling during
// live matches and is invalidated explicitly when a match settles. Redis is
// optional: with a nil client every read goes to the database.
type LeaderboardService struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewLeaderboardService(db *gorm.DB, rdb *redis.Client) *LeaderboardService {
	return &LeaderboardService{DB: db, Redis: rdb}
}

type LeaderboardRow struct {
	Rank     int     `json:"rank"`
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	TeamName string  `json:"team_name"`
	Points   float64 `json:"points"`
	Prize    int64   `json:"prize,omitempty"`
}

type Leaderboard struct {
	MatchID      string             `json:"match_id"`
	MatchStatus  models.MatchStatus `json:"match_status"`
	Participants int                `json:"participants"`
	Rows         []LeaderboardRow   `json:"rows"`
	MyEntry      *LeaderboardRow    `json:"my_entry,omitempty"`
}

// GetLeaderboard ranks a match's entries with tie-aware ranks. On completed
// matches each row also carries the pooled prize for its tie group. The
// caller's own row rides along even when outside the top rows.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, matchID, userID string) (Leaderboard, error) {
	var match models.Match
	if err := s.DB.WithContext(ctx).First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Leaderboard{}, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return Leaderboard{}, err
	}

	board, ok := s.cachedBoard(ctx, matchID)
	if !ok {
		var err error
		board, err = s.buildBoard(ctx, &match)
		if err != nil {
			return Leaderboard{}, err
		}
		s.cacheBoard(ctx, matchID, board)
	}

	if userID != "" {
		if mine := s.findUserRow(ctx, &match, userID); mine != nil {
			board.MyEntry = mine
		}
	}
	return board, nil
}

func (s *LeaderboardService) buildBoard(ctx context.Context, match *models.Match) (Leaderboard, error) {
	var entries []models.ContestEntry
	if err := s.DB.WithContext(ctx).
		Where("match_id = ?", match.ID).
		Order("points DESC, created_at ASC").
		Find(&entries).Error; err != nil {
		return Leaderboard{}, err
	}

	userIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		userIDs = append(userIDs, entry.UserID)
	}
	nameByUser := make(map[string]string, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := s.DB.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return Leaderboard{}, err
		}
		for _, user := range users {
			nameByUser[user.ID] = user.FullName
		}
	}

	board := Leaderboard{
		MatchID:      match.ID,
		MatchStatus:  match.Status,
		Participants: len(entries),
		Rows:         []LeaderboardRow{},
	}
	settled := match.Status == models.MatchCompleted
	for _, group := range tieGroups(entries) {
		var prize int64
		if settled {
			prize = group.prizeShare()
		}
		for _, entry := range group.entries {
			if len(board.Rows) >= leaderboardTopN {
				return board, nil
			}
			board.Rows = append(board.Rows, LeaderboardRow{
				Rank:     group.rank,
				UserID:   entry.UserID,
				UserName: nameByUser[entry.UserID],
				TeamName: entry.TeamName,
				Points:   entry.Points,
				Prize:    prize,
			})
		}
	}
	return board, nil
}

func (s *LeaderboardService) findUserRow(ctx context.Context, match *models.Match, userID string) *LeaderboardRow {
	var entries []models.ContestEntry
	if err := s.DB.WithContext(ctx).
		Where("match_id = ?", match.ID).
		Order("points DESC, created_at ASC").
		Find(&entries).Error; err != nil {
		return nil
	}

	settled := match.Status == models.MatchCompleted
	for _, group := range tieGroups(entries) {
		for _, entry := range group.entries {
			if entry.UserID != userID {
				continue
			}
			row := LeaderboardRow{
				Rank:     group.rank,
				UserID:   entry.UserID,
				TeamName: entry.TeamName,
				Points:   entry.Points,
			}
			if settled {
				row.Prize = group.prizeShare()
			}
			return &row
		}
	}
	return nil
}

func leaderboardCacheKey(matchID string) string {
	return "leaderboard:" + matchID
}

func (s *LeaderboardService) cachedBoard(ctx context.Context, matchID string) (Leaderboard, bool) {
	if s.Redis == nil {
		return Leaderboard{}, false
	}
	raw, err := s.Redis.Get(ctx, leaderboardCacheKey(matchID)).Bytes()
	if err != nil {
		return Leaderboard{}, false
	}
	var board Leaderboard
	if err := json.Unmarshal(raw, &board); err != nil {
		return Leaderboard{}, false
	}
	return board, true
}

func (s *LeaderboardService) cacheBoard(ctx context.Context, matchID string, board Leaderboard) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, leaderboardCacheKey(matchID), raw, leaderboardCacheTTL).Err(); err != nil {
		utils.Log.Warnw("leaderboard cache set failed", "match_id", matchID, "error", err)
	}
}

// InvalidateCache drops the cached board so settled prizes show immediately.
func (s *LeaderboardService) InvalidateCache(ctx context.Context, matchID string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, leaderboardCacheKey(matchID)).Err(); err != nil {
		utils.Log.Warnw("leaderboard cache invalidate failed", "match_id", matchID, "error", err)
	}
}

type ContestListing struct {
	Match        models.Match `json:"match"`
	Participants int64        `json:"participants"`
	EntryFee     int64        `json:"entry_fee"`
	PrizePool    int64        `json:"prize_pool"`
}

// ListMatchContests returns joinable or running contests with participant
// counts. The advertised prize pool is the fee collected so far.
func (s *LeaderboardService) ListMatchContests(ctx context.Context, statusFilter string, limit int) ([]ContestListing, error) {
	statuses := []models.MatchStatus{models.MatchUpcoming, models.MatchLocked}
	switch statusFilter {
	case "":
	case string(models.MatchUpcoming):
		statuses = []models.MatchStatus{models.MatchUpcoming}
	case string(models.MatchLocked):
		statuses = []models.MatchStatus{models.MatchLocked}
	case string(models.MatchCompleted):
		statuses = []models.MatchStatus{models.MatchCompleted}
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, statusFilter)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var matches []models.Match
	if err := s.DB.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("start_time ASC").
		Limit(limit).
		Find(&matches).Error; err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return []ContestListing{}, nil
	}

	matchIDs := make([]string, 0, len(matches))
	for _, match := range matches {
		matchIDs = append(matchIDs, match.ID)
	}
	var counts []struct {
		MatchID string
		Total   int64
	}
	if err := s.DB.WithContext(ctx).Model(&models.ContestEntry{}).
		Select("match_id, count(*) as total").
		Where("match_id IN ?", matchIDs).
		Group("match_id").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	countByMatch := make(map[string]int64, len(counts))
	for _, row := range counts {
		countByMatch[row.MatchID] = row.Total
	}

	listings := make([]ContestListing, 0, len(matches))
	for _, match := range matches {
		participants := countByMatch[match.ID]
		listings = append(listings, ContestListing{
			Match:        match,
			Participants: participants,
			EntryFee:     ContestJoinFee,
			PrizePool:    participants * ContestJoinFee,
		})
	}
	return listings, nil
}

// --- Fiber handlers ---

func (s *LeaderboardService) GetLeaderboardEndpoint(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	board, err := s.GetLeaderboard(c.Context(), c.Params("matchId"), userID)
	if err != nil {
		return respondError(c, err, "Failed to fetch leaderboard")
	}
	return c.JSON(board)
}

func (s *LeaderboardService) ListMatchContestsEndpoint(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	listings, err := s.ListMatchContests(c.Context(), c.Query("status"), limit)
	if err != nil {
		return respondError(c, err, "Failed to fetch contests")
	}
	return c.JSON(listings)
}
