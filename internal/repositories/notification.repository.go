package repositories

import (
	"context"
	"medwatch/internal/database"
	"medwatch/internal/logger"
	. "medwatch/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	CreateTx(ctx context.Context, tx *gorm.DB, notification *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	FindStuckPending(ctx context.Context, olderThan time.Time) ([]Notification, error)
}

type notificationRepository struct {
	db  database.DB
	log logger.Logger
}

func NewNotificationRepository(db database.DB) NotificationRepository {
	return &notificationRepository{
		db:  db,
		log: logger.New("notificationRepository"),
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *Notification) error {
	log := r.log.Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(notification).Error; err != nil {
		return log.Err("failed to create notification", err, "kind", notification.Kind)
	}

	return nil
}

func (r *notificationRepository) CreateTx(
	ctx context.Context,
	tx *gorm.DB,
	notification *Notification,
) error {
	log := r.log.Function("CreateTx")

	if err := tx.Create(notification).Error; err != nil {
		return log.Err("failed to create notification", err, "kind", notification.Kind)
	}

	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	log := r.log.Function("GetByID")

	var notification Notification
	if err := r.db.SQLWithContext(ctx).First(&notification, "id = ?", id).Error; err != nil {
		return nil, log.Err("failed to get notification by id", err, "id", id)
	}

	return &notification, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	log := r.log.Function("MarkSent")

	if err := r.db.SQLWithContext(ctx).
		Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     NotificationSent,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
		}).Error; err != nil {
		return log.Err("failed to mark notification sent", err, "id", id)
	}

	return nil
}

func (r *notificationRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	lastError string,
) error {
	log := r.log.Function("MarkFailed")

	if err := r.db.SQLWithContext(ctx).
		Model(&Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     NotificationFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error; err != nil {
		return log.Err("failed to mark notification failed", err, "id", id)
	}

	return nil
}

// FindStuckPending returns notifications that were staged but never resolved,
// usually because the process died between commit and enqueue.
func (r *notificationRepository) FindStuckPending(
	ctx context.Context,
	olderThan time.Time,
) ([]Notification, error) {
	log := r.log.Function("FindStuckPending")

	var notifications []Notification
	if err := r.db.SQLWithContext(ctx).
		Where("status = ? AND created_at < ?", NotificationPending, olderThan).
		Order("created_at ASC").
		Find(&notifications).Error; err != nil {
		return nil, log.Err("failed to find stuck pending notifications", err)
	}

	return notifications, nil
}
