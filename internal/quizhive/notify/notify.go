// Package notify writes and serves poll-based notifications. Fan-out is
// triggered by quiz-created events and is best-effort: a failure here never
// affects the quiz itself.
package notify

import (
	"context"
	"fmt"
	"time"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/events"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"go.uber.org/zap"
)

// Repository defines the storage interface for notifications and the member
// listing the fan-out draws from.
type Repository interface {
	ListCompanyMemberIDs(ctx context.Context, companyID uint) ([]uint, error)
	CreateNotifications(ctx context.Context, notifications []models.Notification) error
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uint) error
	ListNotifications(ctx context.Context, userID uint, page models.Page) ([]models.Notification, int64, error)
}

type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.Named("notify"),
	}
}

// FanOut inserts one unread notification per non-Candidate employee of the
// quiz's company.
func (s *Service) FanOut(ctx context.Context, companyID, quizID uint, quizTitle string) error {
	memberIDs, err := s.repo.ListCompanyMemberIDs(ctx, companyID)
	if err != nil {
		return fmt.Errorf("failed to list company members: %w", err)
	}

	message := fmt.Sprintf("New quiz %q is available!", quizTitle)
	notifications := make([]models.Notification, 0, len(memberIDs))
	now := time.Now().UTC()
	for _, userID := range memberIDs {
		notifications = append(notifications, models.Notification{
			UserID:    userID,
			QuizID:    quizID,
			Message:   message,
			CreatedAt: now,
		})
	}
	if err := s.repo.CreateNotifications(ctx, notifications); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}

	s.logger.Info("notifications fanned out",
		zap.Uint("quiz_id", quizID),
		zap.Uint("company_id", companyID),
		zap.Int("count", len(notifications)),
	)
	return nil
}

// HandleEvent adapts the service to the kafka consumer.
func (s *Service) HandleEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.QuizCreated || event.Quiz == nil {
		return nil
	}
	return s.FanOut(ctx, event.Quiz.CompanyID, event.Quiz.ID, event.Quiz.Title)
}

// MyNotifications pages through the caller's notifications, newest first.
func (s *Service) MyNotifications(ctx context.Context, userID uint, page models.Page) ([]models.Notification, models.PageInfo, error) {
	notifications, total, err := s.repo.ListNotifications(ctx, userID, page)
	if err != nil {
		return nil, models.PageInfo{}, err
	}
	return notifications, models.NewPageInfo(total, page.Limit), nil
}

// MarkRead flags one of the caller's notifications as read. Someone else's
// notification reads as absent rather than forbidden.
func (s *Service) MarkRead(ctx context.Context, callerID, notificationID uint) error {
	notification, err := s.repo.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.UserID != callerID {
		return e.ErrNotFound
	}
	return s.repo.MarkNotificationRead(ctx, notificationID)
}
