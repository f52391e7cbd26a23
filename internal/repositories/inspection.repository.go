package repositories

import (
	"context"
	"errors"
	"medwatch/internal/database"
	"medwatch/internal/logger"
	. "medwatch/internal/models"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	INSPECTION_CACHE_EXPIRY = 15 * time.Minute
	INSPECTION_CACHE_PREFIX = "inspection:"

	DefaultPageSize = 25
	MaxPageSize     = 100
)

// ErrRevisionConflict is returned when a revision-checked write loses the
// race: the row exists but its revision moved past the one the caller read.
var ErrRevisionConflict = errors.New("revision conflict")

// EffectiveLimit clamps a caller-supplied page size to the bounds List
// applies. Cursor emission must use the same clamp, or a capped page would
// never look full and pagination would stop early.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// ListQuery drives cursor pagination over inspections. Before is an exclusive
// created-at cursor; records strictly older than it are returned, newest
// first.
type ListQuery struct {
	Before   *time.Time
	District string
	Limit    int
}

type InspectionRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, inspection *Inspection) error
	GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error)
	GetBySerialNumber(ctx context.Context, serialNumber string) (*Inspection, error)
	List(ctx context.Context, query ListQuery) ([]Inspection, error)
	PatchWithRevision(
		ctx context.Context,
		tx *gorm.DB,
		id uuid.UUID,
		revision int,
		updates map[string]any,
	) error
	InvalidateCache(ctx context.Context, id uuid.UUID) error
}

type inspectionRepository struct {
	db  database.DB
	log logger.Logger
}

func NewInspectionRepository(db database.DB) InspectionRepository {
	return &inspectionRepository{
		db:  db,
		log: logger.New("inspectionRepository"),
	}
}

func (r *inspectionRepository) CreateTx(
	ctx context.Context,
	tx *gorm.DB,
	inspection *Inspection,
) error {
	log := r.log.Function("CreateTx")

	if err := tx.Create(inspection).Error; err != nil {
		return log.Err("failed to create inspection", err, "serialNumber", inspection.SerialNumber)
	}

	return nil
}

func (r *inspectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error) {
	log := r.log.Function("GetByID")

	var inspection Inspection
	cacheKey := INSPECTION_CACHE_PREFIX + id.String()
	found, err := database.NewCacheBuilder(r.db.Cache.General, cacheKey).
		WithContext(ctx).
		Get(&inspection)
	if err == nil && found {
		return &inspection, nil
	}

	if err := r.db.SQLWithContext(ctx).
		Preload("Impoundment").
		Preload("Impoundment.Release").
		Preload("Evidence").
		First(&inspection, "id = ?", id).Error; err != nil {
		return nil, log.Err("failed to get inspection by id", err, "id", id)
	}

	if err := database.NewCacheBuilder(r.db.Cache.General, cacheKey).
		WithStruct(&inspection).
		WithTTL(INSPECTION_CACHE_EXPIRY).
		WithContext(ctx).
		Set(); err != nil {
		log.Warn("failed to cache inspection", "id", id, "error", err)
	}

	return &inspection, nil
}

func (r *inspectionRepository) GetBySerialNumber(
	ctx context.Context,
	serialNumber string,
) (*Inspection, error) {
	log := r.log.Function("GetBySerialNumber")

	var inspection Inspection
	if err := r.db.SQLWithContext(ctx).
		Preload("Impoundment").
		Preload("Impoundment.Release").
		First(&inspection, "serial_number = ?", serialNumber).Error; err != nil {
		return nil, log.Err(
			"failed to get inspection by serial number",
			err,
			"serialNumber",
			serialNumber,
		)
	}

	return &inspection, nil
}

func (r *inspectionRepository) List(ctx context.Context, query ListQuery) ([]Inspection, error) {
	log := r.log.Function("List")

	limit := EffectiveLimit(query.Limit)

	db := r.db.SQLWithContext(ctx).
		Preload("Impoundment").
		Preload("Impoundment.Release").
		Order("created_at DESC, id DESC").
		Limit(limit)

	if query.Before != nil {
		db = db.Where("created_at < ?", *query.Before)
	}

	if query.District != "" {
		db = db.Where("district = ?", query.District)
	}

	var inspections []Inspection
	if err := db.Find(&inspections).Error; err != nil {
		return nil, log.Err("failed to list inspections", err, "limit", limit)
	}

	return inspections, nil
}

// PatchWithRevision applies updates only when the caller's revision still
// matches the stored row, bumping the revision in the same statement. A
// stale revision returns ErrRevisionConflict; a missing row returns
// gorm.ErrRecordNotFound.
func (r *inspectionRepository) PatchWithRevision(
	ctx context.Context,
	tx *gorm.DB,
	id uuid.UUID,
	revision int,
	updates map[string]any,
) error {
	log := r.log.Function("PatchWithRevision")

	updates["revision"] = gorm.Expr("revision + 1")

	result := tx.Model(&Inspection{}).
		Where("id = ? AND revision = ?", id, revision).
		Updates(updates)
	if result.Error != nil {
		return log.Err("failed to patch inspection", result.Error, "id", id)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&Inspection{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return log.Err("failed to check inspection existence", err, "id", id)
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return log.ErrorWithType(ErrRevisionConflict,
			"inspection revision moved past caller's copy",
			"id", id, "revision", revision)
	}

	if err := r.InvalidateCache(ctx, id); err != nil {
		log.Warn("failed to invalidate inspection cache", "id", id, "error", err)
	}

	return nil
}

func (r *inspectionRepository) InvalidateCache(ctx context.Context, id uuid.UUID) error {
	cacheKey := INSPECTION_CACHE_PREFIX + id.String()
	return database.NewCacheBuilder(r.db.Cache.General, cacheKey).WithContext(ctx).Delete()
}
