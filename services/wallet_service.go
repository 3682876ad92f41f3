package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fantasy-sports-system/metrics"
	"fantasy-sports-system/models"
	"fantasy-sports-system/utils"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	WelcomeBonusAmount    = 500
	DailyLoginBonusAmount = 100
	ContestJoinFee        = 50

	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
)

// errDuplicateEvent is internal to the ledger: an eventKey collision is a
// successful no-op for callers, never an error.
var errDuplicateEvent = errors.New("duplicate event key")

// WalletService owns the append-only ledger and is the only write path to
// User.Balance. Every mutation is one DB transaction: ledger row insert plus
// conditional balance delta.
type WalletService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db, Now: time.Now}
}

type TransactionInput struct {
	UserID      string
	Type        models.WalletTransactionType
	Source      models.WalletTransactionSource
	Amount      int64
	Title       string
	ReferenceID string
	EventKey    string
}

type TransactionResult struct {
	Created bool   `json:"created"`
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// ApplyTransaction appends one ledger row and adjusts the balance atomically.
// If a row with the same EventKey already exists the call returns
// {Created:false} without touching the balance; two racers on the same key
// resolve to exactly one mutation, the loser observing the unique violation.
// Debits are guarded by `balance >= amount` inside the same statement, so
// concurrent debits cannot overdraw.
func (s *WalletService) ApplyTransaction(ctx context.Context, input TransactionInput) (TransactionResult, error) {
	if input.Amount <= 0 {
		metrics.WalletTransactions.WithLabelValues(string(input.Source), "rejected").Inc()
		return TransactionResult{}, fmt.Errorf("%w: got %d", ErrInvalidAmount, input.Amount)
	}
	if input.UserID == "" || input.EventKey == "" {
		return TransactionResult{}, fmt.Errorf("%w: userId and eventKey are required", ErrInvalidInput)
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.WalletTransaction{
			ID:          uuid.NewString(),
			UserID:      input.UserID,
			Type:        input.Type,
			Source:      input.Source,
			Amount:      input.Amount,
			Title:       input.Title,
			ReferenceID: input.ReferenceID,
			EventKey:    input.EventKey,
			CreatedAt:   s.Now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			if isEventKeyConflict(err) {
				return errDuplicateEvent
			}
			return err
		}

		if input.Type == models.WalletTransactionDebit {
			res := tx.Model(&models.User{}).
				Where("id = ? AND balance >= ?", input.UserID, input.Amount).
				UpdateColumn("balance", gorm.Expr("balance - ?", input.Amount))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				var exists int64
				if err := tx.Model(&models.User{}).Where("id = ?", input.UserID).Count(&exists).Error; err != nil {
					return err
				}
				if exists == 0 {
					return fmt.Errorf("%w: user %s", ErrNotFound, input.UserID)
				}
				return ErrInsufficientBalance
			}
			return nil
		}

		res := tx.Model(&models.User{}).
			Where("id = ?", input.UserID).
			UpdateColumn("balance", gorm.Expr("balance + ?", input.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: user %s", ErrNotFound, input.UserID)
		}
		return nil
	})

	if errors.Is(err, errDuplicateEvent) {
		metrics.WalletTransactions.WithLabelValues(string(input.Source), "duplicate").Inc()
		return TransactionResult{Created: false, Amount: input.Amount, Message: "Transaction already applied"}, nil
	}
	if err != nil {
		metrics.WalletTransactions.WithLabelValues(string(input.Source), "rejected").Inc()
		return TransactionResult{}, err
	}

	metrics.WalletTransactions.WithLabelValues(string(input.Source), "applied").Inc()
	utils.Log.Infow("wallet transaction applied",
		"user_id", input.UserID, "type", input.Type, "source", input.Source,
		"amount", input.Amount, "event_key", input.EventKey)
	return TransactionResult{Created: true, Amount: input.Amount, Message: "Transaction applied"}, nil
}

// isEventKeyConflict detects the unique-index violation on event_key across
// the drivers we run on (postgres in prod, sqlite in tests).
func isEventKeyConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

// --- Derived operations, each with a deterministic event key ---

// ApplyWelcomeBonus credits the one-time signup bonus.
func (s *WalletService) ApplyWelcomeBonus(ctx context.Context, userID string) (TransactionResult, error) {
	return s.ApplyTransaction(ctx, TransactionInput{
		UserID:   userID,
		Type:     models.WalletTransactionCredit,
		Source:   models.SourceWelcomeBonus,
		Amount:   WelcomeBonusAmount,
		Title:    "Welcome Bonus",
		EventKey: fmt.Sprintf("welcome_bonus:%s", userID),
	})
}

// ClaimDailyLoginBonus credits at most once per UTC calendar day.
func (s *WalletService) ClaimDailyLoginBonus(ctx context.Context, userID string) (TransactionResult, error) {
	dateKey := s.Now().UTC().Format("2006-01-02")
	return s.ApplyTransaction(ctx, TransactionInput{
		UserID:   userID,
		Type:     models.WalletTransactionCredit,
		Source:   models.SourceDailyLogin,
		Amount:   DailyLoginBonusAmount,
		Title:    "Daily Login Bonus",
		EventKey: fmt.Sprintf("daily_login:%s:%s", userID, dateKey),
	})
}

// ApplyContestJoinDebit charges the fixed entry fee, once per (user, match).
func (s *WalletService) ApplyContestJoinDebit(ctx context.Context, userID, matchID string) (TransactionResult, error) {
	return s.ApplyTransaction(ctx, TransactionInput{
		UserID:      userID,
		Type:        models.WalletTransactionDebit,
		Source:      models.SourceContestJoin,
		Amount:      ContestJoinFee,
		Title:       "Contest Join Fee",
		ReferenceID: matchID,
		EventKey:    fmt.Sprintf("contest_join:%s:%s", userID, matchID),
	})
}

// ApplyContestWinCredit pays a settlement prize, once per (user, match).
func (s *WalletService) ApplyContestWinCredit(ctx context.Context, userID, matchID string, amount int64) (TransactionResult, error) {
	return s.ApplyTransaction(ctx, TransactionInput{
		UserID:      userID,
		Type:        models.WalletTransactionCredit,
		Source:      models.SourceContestWin,
		Amount:      amount,
		Title:       "Contest Winnings",
		ReferenceID: matchID,
		EventKey:    fmt.Sprintf("contest_win:%s:%s", userID, matchID),
	})
}

// ApplyContestRefund returns the join fee when a match is abandoned.
func (s *WalletService) ApplyContestRefund(ctx context.Context, userID, matchID string, amount int64) (TransactionResult, error) {
	return s.ApplyTransaction(ctx, TransactionInput{
		UserID:      userID,
		Type:        models.WalletTransactionCredit,
		Source:      models.SourceContestRefund,
		Amount:      amount,
		Title:       "Contest Entry Refund",
		ReferenceID: matchID,
		EventKey:    fmt.Sprintf("contest_refund:%s:%s", userID, matchID),
	})
}

// --- Read side ---

type WalletSummary struct {
	Balance           int64      `json:"balance"`
	TotalCredit       int64      `json:"total_credit"`
	TotalDebit        int64      `json:"total_debit"`
	TransactionCount  int64      `json:"transaction_count"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
}

// GetSummary returns the denormalized balance plus ledger totals.
func (s *WalletService) GetSummary(ctx context.Context, userID string) (WalletSummary, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WalletSummary{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
		}
		return WalletSummary{}, err
	}

	var agg struct {
		TotalCredit       int64
		TotalDebit        int64
		TransactionCount  int64
		LastTransactionAt *time.Time
	}
	err := s.DB.WithContext(ctx).Model(&models.WalletTransaction{}).
		Select(`coalesce(sum(case when type = 'credit' then amount else 0 end), 0) as total_credit,
			coalesce(sum(case when type = 'debit' then amount else 0 end), 0) as total_debit,
			count(*) as transaction_count,
			max(created_at) as last_transaction_at`).
		Where("user_id = ?", userID).
		Scan(&agg).Error
	if err != nil {
		return WalletSummary{}, err
	}

	return WalletSummary{
		Balance:           user.Balance,
		TotalCredit:       agg.TotalCredit,
		TotalDebit:        agg.TotalDebit,
		TransactionCount:  agg.TransactionCount,
		LastTransactionAt: agg.LastTransactionAt,
	}, nil
}

type TransactionPage struct {
	Rows       []models.WalletTransaction `json:"rows"`
	Page       int                        `json:"page"`
	Size       int                        `json:"size"`
	Total      int64                      `json:"total"`
	TotalPages int64                      `json:"total_pages"`
}

// ListTransactions pages the ledger newest-first. Page/size are clamped.
func (s *WalletService) ListTransactions(ctx context.Context, userID string, page, size int) (TransactionPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.WalletTransaction{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return TransactionPage{}, err
	}

	var rows []models.WalletTransaction
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return TransactionPage{}, err
	}

	totalPages := (total + int64(size) - 1) / int64(size)
	if totalPages == 0 {
		totalPages = 1
	}
	return TransactionPage{Rows: rows, Page: page, Size: size, Total: total, TotalPages: totalPages}, nil
}

// --- Fiber handlers ---

func (s *WalletService) GetSummaryEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	summary, err := s.GetSummary(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to fetch wallet summary")
	}
	return c.JSON(summary)
}

func (s *WalletService) ListTransactionsEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("size", "20"))

	result, err := s.ListTransactions(c.Context(), userID, page, size)
	if err != nil {
		return respondError(c, err, "Failed to fetch transactions")
	}
	return c.JSON(result)
}

func (s *WalletService) ClaimDailyBonusEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	result, err := s.ClaimDailyLoginBonus(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to claim daily bonus")
	}
	return c.JSON(result)
}

func (s *WalletService) ClaimWelcomeBonusEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	result, err := s.ApplyWelcomeBonus(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to apply welcome bonus")
	}
	return c.JSON(result)
}
