package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fantasy-sports-system/metrics"
	"fantasy-sports-system/models"
	"fantasy-sports-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const RosterSize = 11

// ContestService owns contest entries: one roster per (match, user), upsert
// semantics, join fee charged exactly once through the wallet ledger.
type ContestService struct {
	DB            *gorm.DB
	Wallet        *WalletService
	Notifications *NotificationService
	Points        PointValues
}

func NewContestService(db *gorm.DB, wallet *WalletService, notifications *NotificationService) *ContestService {
	return &ContestService{DB: db, Wallet: wallet, Notifications: notifications, Points: DefaultPointValues}
}

type SubmitEntryInput struct {
	MatchID       string   `json:"match_id"`
	UserID        string   `json:"-"`
	TeamID        string   `json:"team_id"`
	TeamName      string   `json:"team_name"`
	PlayerIDs     []string `json:"player_ids"`
	CaptainID     string   `json:"captain_id"`
	ViceCaptainID string   `json:"vice_captain_id"`
}

type SubmitEntryResult struct {
	Created bool                 `json:"created"`
	Entry   *models.ContestEntry `json:"entry"`
}

func (input *SubmitEntryInput) validate() error {
	input.TeamID = strings.TrimSpace(input.TeamID)
	input.TeamName = strings.TrimSpace(input.TeamName)
	if input.TeamID == "" {
		return fmt.Errorf("%w: teamId is required", ErrInvalidInput)
	}
	if input.TeamName == "" {
		return fmt.Errorf("%w: teamName is required", ErrInvalidInput)
	}
	if len(input.PlayerIDs) != RosterSize {
		return fmt.Errorf("%w: roster must have exactly %d players", ErrInvalidInput, RosterSize)
	}
	seen := make(map[string]bool, len(input.PlayerIDs))
	for _, id := range input.PlayerIDs {
		if id == "" || seen[id] {
			return fmt.Errorf("%w: playerIds must be unique and non-empty", ErrInvalidInput)
		}
		seen[id] = true
	}
	if input.CaptainID != "" && !seen[input.CaptainID] {
		return fmt.Errorf("%w: captain must be part of the roster", ErrInvalidInput)
	}
	if input.ViceCaptainID != "" && !seen[input.ViceCaptainID] {
		return fmt.Errorf("%w: vice-captain must be part of the roster", ErrInvalidInput)
	}
	if input.CaptainID != "" && input.CaptainID == input.ViceCaptainID {
		return fmt.Errorf("%w: captain and vice-captain must differ", ErrInvalidInput)
	}
	return nil
}

// SubmitEntry creates or updates the user's roster for a match. First
// submission charges the join fee through the wallet ledger; if the debit
// fails no entry is persisted. Resubmission updates the roster in place and
// never re-charges (the contest_join event key makes the fee idempotent
// anyway). New joins require an upcoming match; roster corrections stay
// possible while locked.
func (s *ContestService) SubmitEntry(ctx context.Context, input SubmitEntryInput) (SubmitEntryResult, error) {
	if err := input.validate(); err != nil {
		return SubmitEntryResult{}, err
	}

	var match models.Match
	if err := s.DB.WithContext(ctx).First(&match, "id = ?", input.MatchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SubmitEntryResult{}, fmt.Errorf("%w: match %s", ErrNotFound, input.MatchID)
		}
		return SubmitEntryResult{}, err
	}

	var existing models.ContestEntry
	err := s.DB.WithContext(ctx).
		Where("match_id = ? AND user_id = ?", input.MatchID, input.UserID).
		First(&existing).Error
	hasExisting := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return SubmitEntryResult{}, err
	}

	if !hasExisting && match.Status != models.MatchUpcoming {
		return SubmitEntryResult{}, fmt.Errorf("%w: match %s does not accept new entries", ErrInvalidState, input.MatchID)
	}
	if hasExisting && match.Status != models.MatchUpcoming && match.Status != models.MatchLocked {
		return SubmitEntryResult{}, fmt.Errorf("%w: entries for match %s can no longer be edited", ErrInvalidState, input.MatchID)
	}

	perfByPlayer, err := s.loadPerformances(ctx, input.MatchID)
	if err != nil {
		return SubmitEntryResult{}, err
	}
	points := CalculateEntryPoints(input.PlayerIDs, input.CaptainID, input.ViceCaptainID, perfByPlayer, s.Points)

	if !hasExisting {
		// Fee first: if the debit fails, no entry may exist.
		if _, err := s.Wallet.ApplyContestJoinDebit(ctx, input.UserID, input.MatchID); err != nil {
			return SubmitEntryResult{}, err
		}

		entry := models.ContestEntry{
			ID:            uuid.NewString(),
			MatchID:       input.MatchID,
			UserID:        input.UserID,
			TeamID:        input.TeamID,
			TeamName:      input.TeamName,
			PlayerIDs:     input.PlayerIDs,
			CaptainID:     input.CaptainID,
			ViceCaptainID: input.ViceCaptainID,
			Points:        points,
		}
		if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
			return SubmitEntryResult{}, err
		}

		s.Notifications.NotifyContestJoined(ctx, input.UserID, &match, input.TeamName)
		utils.Log.Infow("contest entry created", "match_id", input.MatchID, "user_id", input.UserID)
		return SubmitEntryResult{Created: true, Entry: &entry}, nil
	}

	existing.TeamID = input.TeamID
	existing.TeamName = input.TeamName
	existing.PlayerIDs = input.PlayerIDs
	existing.CaptainID = input.CaptainID
	existing.ViceCaptainID = input.ViceCaptainID
	existing.Points = points
	if err := s.DB.WithContext(ctx).Save(&existing).Error; err != nil {
		return SubmitEntryResult{}, err
	}
	return SubmitEntryResult{Created: false, Entry: &existing}, nil
}

// DeleteEntry withdraws the user's roster. No refund: the join fee stays
// spent unless the match is abandoned.
func (s *ContestService) DeleteEntry(ctx context.Context, matchID, userID string) error {
	result := s.DB.WithContext(ctx).
		Where("match_id = ? AND user_id = ?", matchID, userID).
		Delete(&models.ContestEntry{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: contest entry for match %s", ErrNotFound, matchID)
	}
	return nil
}

type MyEntry struct {
	EntryID       string        `json:"entry_id"`
	MatchID       string        `json:"match_id"`
	TeamID        string        `json:"team_id"`
	TeamName      string        `json:"team_name"`
	CaptainID     string        `json:"captain_id,omitempty"`
	ViceCaptainID string        `json:"vice_captain_id,omitempty"`
	PlayerIDs     []string      `json:"player_ids"`
	Points        float64       `json:"points"`
	Match         *models.Match `json:"match,omitempty"`
}

// ListMyEntries returns the user's entries newest-first with match summaries.
func (s *ContestService) ListMyEntries(ctx context.Context, userID string) ([]MyEntry, error) {
	var entries []models.ContestEntry
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []MyEntry{}, nil
	}

	matchIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		matchIDs = append(matchIDs, entry.MatchID)
	}
	var matches []models.Match
	if err := s.DB.WithContext(ctx).Where("id IN ?", matchIDs).Find(&matches).Error; err != nil {
		return nil, err
	}
	matchByID := make(map[string]*models.Match, len(matches))
	for i := range matches {
		matchByID[matches[i].ID] = &matches[i]
	}

	rows := make([]MyEntry, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, MyEntry{
			EntryID:       entry.ID,
			MatchID:       entry.MatchID,
			TeamID:        entry.TeamID,
			TeamName:      entry.TeamName,
			CaptainID:     entry.CaptainID,
			ViceCaptainID: entry.ViceCaptainID,
			PlayerIDs:     entry.PlayerIDs,
			Points:        entry.Points,
			Match:         matchByID[entry.MatchID],
		})
	}
	return rows, nil
}

// RefreshPoints recomputes every entry's points for a match from the current
// scorecard and persists only the rows that changed. Called on each live tick
// and again as the authoritative pass at the start of settlement. Safe to run
// repeatedly and concurrently with submissions; last write wins pre-settlement.
func (s *ContestService) RefreshPoints(ctx context.Context, matchID string) (int, error) {
	var match models.Match
	if err := s.DB.WithContext(ctx).First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return 0, err
	}

	var entries []models.ContestEntry
	if err := s.DB.WithContext(ctx).Where("match_id = ?", matchID).Find(&entries).Error; err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	perfByPlayer, err := s.loadPerformances(ctx, matchID)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range entries {
		entry := &entries[i]
		recalculated := CalculateEntryPoints(entry.PlayerIDs, entry.CaptainID, entry.ViceCaptainID, perfByPlayer, s.Points)
		if entry.Points == recalculated {
			continue
		}
		if err := s.DB.WithContext(ctx).Model(&models.ContestEntry{}).
			Where("id = ?", entry.ID).
			Update("points", recalculated).Error; err != nil {
			return updated, err
		}
		entry.Points = recalculated
		updated++
	}

	metrics.PointsRefreshes.Inc()
	return updated, nil
}

func (s *ContestService) loadPerformances(ctx context.Context, matchID string) (map[string]models.PlayerPerformance, error) {
	var rows []models.PlayerPerformance
	if err := s.DB.WithContext(ctx).Where("match_id = ?", matchID).Find(&rows).Error; err != nil {
		return nil, err
	}
	perfByPlayer := make(map[string]models.PlayerPerformance, len(rows))
	for _, row := range rows {
		perfByPlayer[row.PlayerID] = row
	}
	return perfByPlayer, nil
}

// --- Fiber handlers ---

func (s *ContestService) SubmitEntryEndpoint(c *fiber.Ctx) error {
	var input SubmitEntryInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	input.MatchID = c.Params("matchId")
	input.UserID = c.Locals("user_id").(string)

	result, err := s.SubmitEntry(c.Context(), input)
	if err != nil {
		return respondError(c, err, "Failed to submit contest entry")
	}
	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(result)
}

func (s *ContestService) DeleteEntryEndpoint(c *fiber.Ctx) error {
	matchID := c.Params("matchId")
	userID := c.Locals("user_id").(string)
	if err := s.DeleteEntry(c.Context(), matchID, userID); err != nil {
		return respondError(c, err, "Failed to delete contest entry")
	}
	return c.JSON(fiber.Map{"message": "Contest entry deleted"})
}

func (s *ContestService) ListMyEntriesEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	rows, err := s.ListMyEntries(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to fetch entries")
	}
	return c.JSON(rows)
}
