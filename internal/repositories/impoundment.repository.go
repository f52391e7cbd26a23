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

type ImpoundmentRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, impoundment *Impoundment) error
	GetByInspectionID(ctx context.Context, inspectionID uuid.UUID) (*Impoundment, error)
	UpdateTx(ctx context.Context, tx *gorm.DB, impoundment *Impoundment) error
	CreateReleaseTx(ctx context.Context, tx *gorm.DB, release *Release) error
	ClaimReminderTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, sentAt time.Time) (bool, error)
	FindReminderCandidates(ctx context.Context, inStoreBefore time.Time) ([]Impoundment, error)
}

type impoundmentRepository struct {
	db  database.DB
	log logger.Logger
}

func NewImpoundmentRepository(db database.DB) ImpoundmentRepository {
	return &impoundmentRepository{
		db:  db,
		log: logger.New("impoundmentRepository"),
	}
}

func (r *impoundmentRepository) CreateTx(
	ctx context.Context,
	tx *gorm.DB,
	impoundment *Impoundment,
) error {
	log := r.log.Function("CreateTx")

	if err := tx.Create(impoundment).Error; err != nil {
		return log.Err(
			"failed to create impoundment",
			err,
			"inspectionID",
			impoundment.InspectionID,
		)
	}

	return nil
}

func (r *impoundmentRepository) GetByInspectionID(
	ctx context.Context,
	inspectionID uuid.UUID,
) (*Impoundment, error) {
	log := r.log.Function("GetByInspectionID")

	var impoundment Impoundment
	if err := r.db.SQLWithContext(ctx).
		Preload("Release").
		First(&impoundment, "inspection_id = ?", inspectionID).Error; err != nil {
		return nil, log.Err(
			"failed to get impoundment by inspection id",
			err,
			"inspectionID",
			inspectionID,
		)
	}

	return &impoundment, nil
}

func (r *impoundmentRepository) UpdateTx(
	ctx context.Context,
	tx *gorm.DB,
	impoundment *Impoundment,
) error {
	log := r.log.Function("UpdateTx")

	if err := tx.Save(impoundment).Error; err != nil {
		return log.Err("failed to update impoundment", err, "id", impoundment.ID)
	}

	return nil
}

func (r *impoundmentRepository) CreateReleaseTx(
	ctx context.Context,
	tx *gorm.DB,
	release *Release,
) error {
	log := r.log.Function("CreateReleaseTx")

	if err := tx.Create(release).Error; err != nil {
		return log.Err(
			"failed to create release record",
			err,
			"impoundmentID",
			release.ImpoundmentID,
		)
	}

	return nil
}

// ClaimReminderTx marks an impoundment as reminded with a conditional update
// so concurrent sweeps cannot both claim it. Returns true when this caller
// won. Runs in the caller's transaction: a rolled-back stage releases the
// claim and a later sweep retries the reminder.
func (r *impoundmentRepository) ClaimReminderTx(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	sentAt time.Time,
) (bool, error) {
	log := r.log.Function("ClaimReminderTx")

	result := tx.Model(&Impoundment{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", sentAt)
	if result.Error != nil {
		return false, log.Err("failed to claim reminder", result.Error, "id", id)
	}

	return result.RowsAffected == 1, nil
}

// FindReminderCandidates returns impoundments still in store that entered it
// before the cutoff and have not been reminded yet. Rows predating the
// in-store timestamp fall back to the impoundment date.
func (r *impoundmentRepository) FindReminderCandidates(
	ctx context.Context,
	inStoreBefore time.Time,
) ([]Impoundment, error) {
	log := r.log.Function("FindReminderCandidates")

	var impoundments []Impoundment
	if err := r.db.SQLWithContext(ctx).
		Where(
			"box_status = ? AND reminder_sent_at IS NULL AND COALESCE(in_store_at, impoundment_date) < ?",
			BoxStatusInStore,
			inStoreBefore,
		).
		Find(&impoundments).Error; err != nil {
		return nil, log.Err("failed to find reminder candidates", err)
	}

	return impoundments, nil
}
