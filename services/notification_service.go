package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"fantasy-sports-system/models"
	"fantasy-sports-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService writes and reads in-app notification rows. The Notify*
// helpers are fire-and-forget: an insert failure is logged and swallowed so
// notification trouble can never fail a wallet or settlement operation.
type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

func (s *NotificationService) create(ctx context.Context, n models.Notification) {
	n.ID = uuid.NewString()
	if err := s.DB.WithContext(ctx).Create(&n).Error; err != nil {
		utils.Log.Errorw("notification insert failed", "user_id", n.UserID, "type", n.Type, "error", err)
	}
}

func metadataJSON(fields map[string]interface{}) []byte {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return b
}

func (s *NotificationService) NotifyContestJoined(ctx context.Context, userID string, match *models.Match, teamName string) {
	s.create(ctx, models.Notification{
		UserID:        userID,
		Type:          models.NotificationContestJoined,
		Title:         "Contest Joined Successfully!",
		Message:       fmt.Sprintf("You've joined the %s contest with team %q. Good luck!", match.Label(), teamName),
		ReferenceID:   match.ID,
		ReferenceType: "match",
		Metadata: metadataJSON(map[string]interface{}{
			"match_id":  match.ID,
			"team_name": teamName,
		}),
	})
}

func (s *NotificationService) NotifyMatchCompleted(ctx context.Context, userID string, match *models.Match, rank int, points float64) {
	s.create(ctx, models.Notification{
		UserID:        userID,
		Type:          models.NotificationMatchCompleted,
		Title:         "Match Completed!",
		Message:       fmt.Sprintf("%s match is now complete. You finished at rank #%d with %.1f points.", match.Label(), rank, points),
		ReferenceID:   match.ID,
		ReferenceType: "match",
		Metadata: metadataJSON(map[string]interface{}{
			"match_id": match.ID,
			"rank":     rank,
			"points":   points,
		}),
	})
}

func (s *NotificationService) NotifyPrizeCredited(ctx context.Context, userID string, match *models.Match, amount int64, rank int) {
	s.create(ctx, models.Notification{
		UserID:        userID,
		Type:          models.NotificationPrizeCredited,
		Title:         "Prize Credited!",
		Message:       fmt.Sprintf("Congratulations! %d has been credited to your wallet for finishing #%d in the %s contest.", amount, rank, match.Label()),
		ReferenceID:   match.ID,
		ReferenceType: "wallet",
		Metadata: metadataJSON(map[string]interface{}{
			"match_id": match.ID,
			"amount":   amount,
			"rank":     rank,
		}),
	})
}

type NotificationPage struct {
	Rows       []models.Notification `json:"rows"`
	Page       int                   `json:"page"`
	Size       int                   `json:"size"`
	Total      int64                 `json:"total"`
	TotalPages int64                 `json:"total_pages"`
}

// List pages a user's notifications newest-first.
func (s *NotificationService) List(ctx context.Context, userID string, page, size int) (NotificationPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 50 {
		size = 50
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return NotificationPage{}, err
	}

	var rows []models.Notification
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return NotificationPage{}, err
	}

	totalPages := (total + int64(size) - 1) / int64(size)
	if totalPages == 0 {
		totalPages = 1
	}
	return NotificationPage{Rows: rows, Page: page, Size: size, Total: total, TotalPages: totalPages}, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	result := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	result := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (s *NotificationService) Delete(ctx context.Context, notificationID, userID string) error {
	result := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
	}
	return nil
}

// --- Fiber handlers ---

func (s *NotificationService) ListEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("size", "20"))
	result, err := s.List(c.Context(), userID, page, size)
	if err != nil {
		return respondError(c, err, "Failed to fetch notifications")
	}
	return c.JSON(result)
}

func (s *NotificationService) UnreadCountEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	count, err := s.UnreadCount(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to count notifications")
	}
	return c.JSON(fiber.Map{"count": count})
}

func (s *NotificationService) MarkAsReadEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if err := s.MarkAsRead(c.Context(), c.Params("id"), userID); err != nil {
		return respondError(c, err, "Failed to mark notification as read")
	}
	return c.JSON(fiber.Map{"message": "OK"})
}

func (s *NotificationService) MarkAllAsReadEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	marked, err := s.MarkAllAsRead(c.Context(), userID)
	if err != nil {
		return respondError(c, err, "Failed to mark notifications as read")
	}
	return c.JSON(fiber.Map{"message": "OK", "marked_count": marked})
}

func (s *NotificationService) DeleteEndpoint(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	if err := s.Delete(c.Context(), c.Params("id"), userID); err != nil {
		return respondError(c, err, "Failed to delete notification")
	}
	return c.JSON(fiber.Map{"deleted": true})
}
