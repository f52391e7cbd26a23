package repositories

import (
	"context"
	"medwatch/internal/database"
	"medwatch/internal/logger"
	. "medwatch/internal/models"

	"github.com/google/uuid"
)

type EvidenceRepository interface {
	Create(ctx context.Context, evidence *Evidence) error
	GetByID(ctx context.Context, id uuid.UUID) (*Evidence, error)
	ListByInspectionID(ctx context.Context, inspectionID uuid.UUID) ([]Evidence, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type evidenceRepository struct {
	db  database.DB
	log logger.Logger
}

func NewEvidenceRepository(db database.DB) EvidenceRepository {
	return &evidenceRepository{
		db:  db,
		log: logger.New("evidenceRepository"),
	}
}

func (r *evidenceRepository) Create(ctx context.Context, evidence *Evidence) error {
	log := r.log.Function("Create")

	if err := r.db.SQLWithContext(ctx).Create(evidence).Error; err != nil {
		return log.Err("failed to create evidence", err, "inspectionID", evidence.InspectionID)
	}

	return nil
}

func (r *evidenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*Evidence, error) {
	log := r.log.Function("GetByID")

	var evidence Evidence
	if err := r.db.SQLWithContext(ctx).First(&evidence, "id = ?", id).Error; err != nil {
		return nil, log.Err("failed to get evidence by id", err, "id", id)
	}

	return &evidence, nil
}

func (r *evidenceRepository) ListByInspectionID(
	ctx context.Context,
	inspectionID uuid.UUID,
) ([]Evidence, error) {
	log := r.log.Function("ListByInspectionID")

	var evidence []Evidence
	if err := r.db.SQLWithContext(ctx).
		Where("inspection_id = ?", inspectionID).
		Order("created_at ASC").
		Find(&evidence).Error; err != nil {
		return nil, log.Err("failed to list evidence", err, "inspectionID", inspectionID)
	}

	return evidence, nil
}

func (r *evidenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	log := r.log.Function("Delete")

	if err := r.db.SQLWithContext(ctx).Delete(&Evidence{}, "id = ?", id).Error; err != nil {
		return log.Err("failed to delete evidence", err, "id", id)
	}

	return nil
}
