package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fantasy-sports-system/models"
	"fantasy-sports-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchService owns the match lifecycle state machine and the match/scorecard
// catalog reads. Settlement builds on top of it.
type MatchService struct {
	DB     *gorm.DB
	Wallet *WalletService
}

func NewMatchService(db *gorm.DB, wallet *WalletService) *MatchService {
	return &MatchService{DB: db, Wallet: wallet}
}

// GetMatch loads a match or returns ErrNotFound.
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	var match models.Match
	if err := s.DB.WithContext(ctx).First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return nil, err
	}
	return &match, nil
}

// LockMatch moves upcoming → locked and freezes rosters. Locking is forbidden
// once locked, completed, or abandoned.
func (s *MatchService) LockMatch(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchUpcoming {
		return nil, fmt.Errorf("%w: cannot lock match in status %q", ErrInvalidState, match.Status)
	}

	match.Status = models.MatchLocked
	match.IsEditable = false
	if err := s.DB.WithContext(ctx).Model(match).
		Updates(map[string]interface{}{"status": models.MatchLocked, "is_editable": false}).Error; err != nil {
		return nil, err
	}
	utils.Log.Infow("match locked", "match_id", matchID)
	return match, nil
}

type AbandonResult struct {
	Match         *models.Match `json:"match"`
	RefundedCount int           `json:"refunded_count"`
}

// AbandonMatch terminates an upcoming or locked match and refunds every
// entry's join fee. Refunds ride on contest_refund event keys, so re-running
// after a partial failure never double-refunds.
func (s *MatchService) AbandonMatch(ctx context.Context, matchID string) (AbandonResult, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return AbandonResult{}, err
	}
	if match.Status != models.MatchUpcoming && match.Status != models.MatchLocked {
		return AbandonResult{}, fmt.Errorf("%w: cannot abandon match in status %q", ErrInvalidState, match.Status)
	}

	match.Status = models.MatchAbandoned
	match.IsEditable = false
	if err := s.DB.WithContext(ctx).Model(match).
		Updates(map[string]interface{}{"status": models.MatchAbandoned, "is_editable": false}).Error; err != nil {
		return AbandonResult{}, err
	}

	var entries []models.ContestEntry
	if err := s.DB.WithContext(ctx).Where("match_id = ?", matchID).Find(&entries).Error; err != nil {
		return AbandonResult{}, err
	}

	refunded := 0
	for _, entry := range entries {
		result, err := s.Wallet.ApplyContestRefund(ctx, entry.UserID, matchID, ContestJoinFee)
		if err != nil {
			utils.Log.Errorw("refund failed", "match_id", matchID, "user_id", entry.UserID, "error", err)
			continue
		}
		if result.Created {
			refunded++
		}
	}

	utils.Log.Infow("match abandoned", "match_id", matchID, "refunded", refunded)
	return AbandonResult{Match: match, RefundedCount: refunded}, nil
}

type MatchPage struct {
	Matches    []models.Match `json:"matches"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	TotalItems int64          `json:"total_items"`
	TotalPages int64          `json:"total_pages"`
}

// ListCompletedMatches pages completed matches newest-first, optionally
// filtered by league.
func (s *MatchService) ListCompletedMatches(ctx context.Context, page, size int, league string) (MatchPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}

	query := s.DB.WithContext(ctx).Model(&models.Match{}).Where("status = ?", models.MatchCompleted)
	if league = strings.TrimSpace(league); league != "" {
		query = query.Where("league = ?", league)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return MatchPage{}, err
	}

	var matches []models.Match
	if err := query.Order("start_time DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&matches).Error; err != nil {
		return MatchPage{}, err
	}

	totalPages := (total + int64(size) - 1) / int64(size)
	return MatchPage{Matches: matches, Page: page, Size: size, TotalItems: total, TotalPages: totalPages}, nil
}

// ListMatchesByStatus returns matches for the admin dropdown, optionally
// filtered by a comma-separated status list.
func (s *MatchService) ListMatchesByStatus(ctx context.Context, statusFilter string, limit int) ([]models.Match, error) {
	query := s.DB.WithContext(ctx).Model(&models.Match{})
	if statusFilter != "" {
		var statuses []string
		for _, raw := range strings.Split(statusFilter, ",") {
			if v := strings.TrimSpace(raw); v != "" {
				statuses = append(statuses, v)
			}
		}
		if len(statuses) > 0 {
			query = query.Where("status IN ?", statuses)
		}
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var matches []models.Match
	if err := query.Order("start_time DESC").Limit(limit).Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// GetScorecard returns a match's scorecard with innings and performances.
func (s *MatchService) GetScorecard(ctx context.Context, matchID string) (*models.Scorecard, error) {
	if _, err := s.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}

	var scorecard models.Scorecard
	err := s.DB.WithContext(ctx).
		Preload("Innings", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("Performances").
		First(&scorecard, "match_id = ?", matchID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: scorecard for match %s", ErrNotFound, matchID)
		}
		return nil, err
	}
	return &scorecard, nil
}

// EnsureScorecard creates an empty scorecard with both innings rows if none
// exists yet. Used by the live simulation worker before its first tick.
func (s *MatchService) EnsureScorecard(ctx context.Context, match *models.Match) (*models.Scorecard, error) {
	var scorecard models.Scorecard
	err := s.DB.WithContext(ctx).First(&scorecard, "match_id = ?", match.ID).Error
	if err == nil {
		return &scorecard, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	scorecard = models.Scorecard{
		ID:         uuid.NewString(),
		MatchID:    match.ID,
		ResultText: "Live",
	}
	innings := []models.InningsScore{
		{ID: uuid.NewString(), ScorecardID: scorecard.ID, TeamShortName: match.TeamAShortName, SortOrder: 0},
		{ID: uuid.NewString(), ScorecardID: scorecard.ID, TeamShortName: match.TeamBShortName, SortOrder: 1},
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&scorecard).Error; err != nil {
			return err
		}
		return tx.Create(&innings).Error
	})
	if err != nil {
		return nil, err
	}
	scorecard.Innings = innings
	return &scorecard, nil
}

// --- Fiber handlers ---

func (s *MatchService) ListCompletedMatchesEndpoint(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("size", "10"))
	result, err := s.ListCompletedMatches(c.Context(), page, size, c.Query("league"))
	if err != nil {
		return respondError(c, err, "Failed to fetch matches")
	}
	return c.JSON(result)
}

func (s *MatchService) GetScorecardEndpoint(c *fiber.Ctx) error {
	matchID := c.Params("id")
	match, err := s.GetMatch(c.Context(), matchID)
	if err != nil {
		return respondError(c, err, "Failed to fetch match")
	}
	scorecard, err := s.GetScorecard(c.Context(), matchID)
	if err != nil {
		return respondError(c, err, "Failed to fetch scorecard")
	}
	return c.JSON(fiber.Map{"match": match, "scorecard": scorecard})
}

func (s *MatchService) ListMatchesForAdminEndpoint(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	matches, err := s.ListMatchesByStatus(c.Context(), c.Query("status"), limit)
	if err != nil {
		return respondError(c, err, "Failed to fetch matches")
	}
	return c.JSON(matches)
}

func (s *MatchService) LockMatchEndpoint(c *fiber.Ctx) error {
	match, err := s.LockMatch(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to lock match")
	}
	return c.JSON(fiber.Map{"message": "Match locked", "match": match})
}

func (s *MatchService) AbandonMatchEndpoint(c *fiber.Ctx) error {
	result, err := s.AbandonMatch(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to abandon match")
	}
	return c.JSON(fiber.Map{"message": "Match abandoned", "match": result.Match, "refunded_count": result.RefundedCount})
}
