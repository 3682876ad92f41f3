package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"fantasy-sports-system/events"
	"fantasy-sports-system/metrics"
	"fantasy-sports-system/models"
	"fantasy-sports-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Prize table by final rank. Ranks beyond tenth win nothing.
const (
	PrizeFirst   = 1000
	PrizeSecond  = 500
	PrizeThird   = 300
	PrizeTopTen  = 100
	topPrizeRank = 10
)

// PrizeForRank returns the prize for a single (untied) rank.
func PrizeForRank(rank int) int64 {
	switch {
	case rank == 1:
		return PrizeFirst
	case rank == 2:
		return PrizeSecond
	case rank == 3:
		return PrizeThird
	case rank <= topPrizeRank:
		return PrizeTopTen
	default:
		return 0
	}
}

// SettlementService completes a match and distributes prizes. Every payout
// rides on a contest_win event key, so re-running settlement on an already
// completed match is a safe no-op that reports AlreadyCreditedCount instead
// of paying twice.
type SettlementService struct {
	DB            *gorm.DB
	Contest       *ContestService
	Wallet        *WalletService
	Notifications *NotificationService
	Leaderboard   *LeaderboardService
	Publisher     events.Publisher
	Now           func() time.Time
}

func NewSettlementService(db *gorm.DB, contest *ContestService, wallet *WalletService, notifications *NotificationService, leaderboard *LeaderboardService, publisher events.Publisher) *SettlementService {
	return &SettlementService{
		DB:            db,
		Contest:       contest,
		Wallet:        wallet,
		Notifications: notifications,
		Leaderboard:   leaderboard,
		Publisher:     publisher,
		Now:           time.Now,
	}
}

type CompleteInput struct {
	Result              models.MatchResult `json:"result"`
	WinnerTeamShortName string             `json:"winner_team_short_name"`
	Summary             string             `json:"summary"`
}

func (input *CompleteInput) validate() error {
	switch input.Result {
	case models.ResultTeamA, models.ResultTeamB, models.ResultDraw, models.ResultNoResult:
		return nil
	case "":
		return fmt.Errorf("%w: result is required", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown result %q", ErrInvalidInput, input.Result)
	}
}

type Payout struct {
	UserID string  `json:"user_id"`
	Rank   int     `json:"rank"`
	Points float64 `json:"points"`
	Amount int64   `json:"amount"`
	Status string  `json:"status"`
}

type SettlementResult struct {
	Settled               bool     `json:"settled"`
	CreditedCount         int      `json:"credited_count"`
	AlreadyCreditedCount  int      `json:"already_credited_count"`
	FailedCount           int      `json:"failed_count"`
	TotalPrizeDistributed int64    `json:"total_prize_distributed"`
	Payouts               []Payout `json:"payouts"`
}

// CompleteAndSettle marks the match completed, recomputes every entry's
// points from the final scorecard, ranks entries, and credits prizes. Tied
// entries share a rank: the prizes of the rank positions the tie spans are
// pooled and split evenly, rounded to the nearest unit.
func (s *SettlementService) CompleteAndSettle(ctx context.Context, matchID string, input CompleteInput) (SettlementResult, error) {
	if err := input.validate(); err != nil {
		return SettlementResult{}, err
	}

	var match models.Match
	if err := s.DB.WithContext(ctx).First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SettlementResult{}, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
		}
		return SettlementResult{}, err
	}
	if match.Status == models.MatchAbandoned {
		return SettlementResult{}, fmt.Errorf("%w: match %s is abandoned", ErrInvalidState, matchID)
	}

	firstSettlement := match.Status != models.MatchCompleted
	now := s.Now().UTC()
	updates := map[string]interface{}{
		"status":                 models.MatchCompleted,
		"is_editable":            false,
		"result":                 input.Result,
		"winner_team_short_name": input.WinnerTeamShortName,
		"summary":                input.Summary,
	}
	if firstSettlement {
		updates["settled_at"] = now
	}
	if err := s.DB.WithContext(ctx).Model(&match).Updates(updates).Error; err != nil {
		return SettlementResult{}, err
	}

	// Authoritative recompute from the final scorecard before ranking.
	if _, err := s.Contest.RefreshPoints(ctx, matchID); err != nil {
		return SettlementResult{}, err
	}

	var entries []models.ContestEntry
	if err := s.DB.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("points DESC, created_at ASC").
		Find(&entries).Error; err != nil {
		return SettlementResult{}, err
	}

	result := SettlementResult{Settled: true, Payouts: []Payout{}}
	metrics.SettlementRuns.Inc()

	for _, group := range tieGroups(entries) {
		share := group.prizeShare()
		for _, entry := range group.entries {
			payout := Payout{UserID: entry.UserID, Rank: group.rank, Points: entry.Points, Amount: share}
			if firstSettlement {
				s.Notifications.NotifyMatchCompleted(ctx, entry.UserID, &match, group.rank, entry.Points)
			}
			if share <= 0 {
				continue
			}

			credit, err := s.Wallet.ApplyContestWinCredit(ctx, entry.UserID, matchID, share)
			switch {
			case err != nil:
				payout.Status = "failed"
				result.FailedCount++
				metrics.SettlementPayouts.WithLabelValues("failed").Inc()
				utils.Log.Errorw("prize credit failed",
					"match_id", matchID, "user_id", entry.UserID, "amount", share, "error", err)
			case credit.Created:
				payout.Status = "credited"
				result.CreditedCount++
				result.TotalPrizeDistributed += share
				metrics.SettlementPayouts.WithLabelValues("credited").Inc()
				s.Notifications.NotifyPrizeCredited(ctx, entry.UserID, &match, share, group.rank)
				if s.Publisher != nil {
					s.Publisher.PublishPrizeCredited(ctx, events.PrizeCredited{
						UserID:  entry.UserID,
						MatchID: matchID,
						Rank:    group.rank,
						Amount:  share,
					})
				}
			default:
				payout.Status = "already_credited"
				result.AlreadyCreditedCount++
				metrics.SettlementPayouts.WithLabelValues("already_credited").Inc()
			}
			result.Payouts = append(result.Payouts, payout)
		}
	}

	if s.Leaderboard != nil {
		s.Leaderboard.InvalidateCache(ctx, matchID)
	}
	if s.Publisher != nil {
		s.Publisher.PublishMatchSettled(ctx, events.MatchSettled{
			MatchID:               matchID,
			CreditedCount:         result.CreditedCount,
			AlreadyCreditedCount:  result.AlreadyCreditedCount,
			TotalPrizeDistributed: result.TotalPrizeDistributed,
		})
	}

	utils.Log.Infow("match settled",
		"match_id", matchID, "entries", len(entries),
		"credited", result.CreditedCount, "already_credited", result.AlreadyCreditedCount,
		"failed", result.FailedCount, "distributed", result.TotalPrizeDistributed)
	return result, nil
}

type tieGroup struct {
	rank    int
	entries []models.ContestEntry
}

// prizeShare pools the prizes of the rank positions the group occupies and
// splits them evenly, rounded to the nearest unit.
func (g tieGroup) prizeShare() int64 {
	var pool int64
	for i := 0; i < len(g.entries); i++ {
		pool += PrizeForRank(g.rank + i)
	}
	if pool == 0 {
		return 0
	}
	return int64(math.Round(float64(pool) / float64(len(g.entries))))
}

// tieGroups splits entries, already sorted by points descending, into groups
// of equal points. Each group's rank is one past the number of entries ahead
// of it, so a two-way tie at the top yields ranks 1, 1, 3.
func tieGroups(entries []models.ContestEntry) []tieGroup {
	groups := make([]tieGroup, 0, len(entries))
	for i := 0; i < len(entries); {
		j := i
		for j < len(entries) && entries[j].Points == entries[i].Points {
			j++
		}
		groups = append(groups, tieGroup{rank: i + 1, entries: entries[i:j]})
		i = j
	}
	return groups
}

// --- Fiber handlers ---

func (s *SettlementService) CompleteAndSettleEndpoint(c *fiber.Ctx) error {
	var input CompleteInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	result, err := s.CompleteAndSettle(c.Context(), c.Params("id"), input)
	if err != nil {
		return respondError(c, err, "Failed to settle match")
	}
	return c.JSON(result)
}
