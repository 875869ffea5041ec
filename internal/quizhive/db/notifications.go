package db

import (
	"context"
	"errors"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"gorm.io/gorm"
)

// CreateNotifications bulk-inserts the fan-out batch.
func (r *Repository) CreateNotifications(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *Repository) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var notification models.Notification
	result := r.db.WithContext(ctx).First(&notification, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &notification, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID uint, page models.Page) ([]models.Notification, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Offset(page.Skip).
		Limit(page.Limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}
