package evidenceController

import (
	"context"
	"errors"
	"fmt"
	"io"
	"medwatch/config"
	"medwatch/internal/database"
	"medwatch/internal/logger"
	. "medwatch/internal/models"
	"medwatch/internal/repositories"
	"medwatch/internal/services"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

const (
	MaxEvidenceSize = 20 << 20 // 20 MiB per file
	DownloadExpiry  = 15 * time.Minute
)

type EvidenceController struct {
	evidenceRepo   repositories.EvidenceRepository
	inspectionRepo repositories.InspectionRepository
	storage        *services.StorageService
	db             database.DB
	Config         config.Config
	log            logger.Logger
}

type EvidenceControllerInterface interface {
	Upload(ctx context.Context, user *User, inspectionID uuid.UUID, req UploadRequest) (*Evidence, error)
	List(ctx context.Context, inspectionID uuid.UUID) ([]Evidence, error)
	DownloadURL(ctx context.Context, evidenceID uuid.UUID) (string, error)
	Delete(ctx context.Context, evidenceID uuid.UUID) error
}

type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
	db database.DB,
) EvidenceControllerInterface {
	return &EvidenceController{
		evidenceRepo:   repos.Evidence,
		inspectionRepo: repos.Inspection,
		storage:        services.Storage,
		db:             db,
		Config:         config,
		log:            logger.New("evidenceController"),
	}
}

func (c *EvidenceController) Upload(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	req UploadRequest,
) (*Evidence, error) {
	log := c.log.Function("Upload")

	if !c.storage.Configured() {
		return nil, log.ErrorWithType(ErrValidation, "evidence storage is not configured")
	}

	if strings.TrimSpace(req.FileName) == "" {
		return nil, log.ErrorWithType(ErrValidation, "file name is required")
	}

	if req.Size <= 0 || req.Size > MaxEvidenceSize {
		return nil, log.ErrorWithType(ErrValidation, "file size out of range",
			"size", req.Size)
	}

	if _, err := c.inspectionRepo.GetByID(ctx, inspectionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, log.ErrorWithType(ErrNotFound, "inspection not found",
				"inspectionID", inspectionID)
		}
		return nil, err
	}

	objectKey := fmt.Sprintf("%s/%s-%s", inspectionID, uuid.New().String(), req.FileName)

	if err := c.storage.Upload(ctx, objectKey, req.Body, req.Size, req.ContentType); err != nil {
		return nil, err
	}

	evidence := &Evidence{
		InspectionID: inspectionID,
		FileName:     req.FileName,
		ObjectKey:    objectKey,
		ContentType:  req.ContentType,
		SizeBytes:    req.Size,
		UploadedByID: user.ID,
	}

	if err := c.evidenceRepo.Create(ctx, evidence); err != nil {
		// Orphaned objects are cleaned up opportunistically
		if removeErr := c.storage.Delete(ctx, objectKey); removeErr != nil {
			log.Warn("failed to remove orphaned evidence object",
				"objectKey", objectKey, "error", removeErr)
		}
		return nil, err
	}

	if err := c.inspectionRepo.InvalidateCache(ctx, inspectionID); err != nil {
		log.Warn("failed to invalidate inspection cache", "inspectionID", inspectionID, "error", err)
	}

	log.Info("evidence uploaded",
		"inspectionID", inspectionID,
		"evidenceID", evidence.ID,
		"size", req.Size)
	return evidence, nil
}

func (c *EvidenceController) List(
	ctx context.Context,
	inspectionID uuid.UUID,
) ([]Evidence, error) {
	return c.evidenceRepo.ListByInspectionID(ctx, inspectionID)
}

func (c *EvidenceController) DownloadURL(
	ctx context.Context,
	evidenceID uuid.UUID,
) (string, error) {
	log := c.log.Function("DownloadURL")

	evidence, err := c.evidenceRepo.GetByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", log.ErrorWithType(ErrNotFound, "evidence not found",
				"evidenceID", evidenceID)
		}
		return "", err
	}

	return c.storage.PresignedGetURL(ctx, evidence.ObjectKey, DownloadExpiry)
}

func (c *EvidenceController) Delete(ctx context.Context, evidenceID uuid.UUID) error {
	log := c.log.Function("Delete")

	evidence, err := c.evidenceRepo.GetByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return log.ErrorWithType(ErrNotFound, "evidence not found",
				"evidenceID", evidenceID)
		}
		return err
	}

	if err := c.storage.Delete(ctx, evidence.ObjectKey); err != nil {
		log.Warn("failed to delete evidence object, removing row anyway",
			"objectKey", evidence.ObjectKey, "error", err)
	}

	if err := c.evidenceRepo.Delete(ctx, evidenceID); err != nil {
		return err
	}

	if err := c.inspectionRepo.InvalidateCache(ctx, evidence.InspectionID); err != nil {
		log.Warn("failed to invalidate inspection cache",
			"inspectionID", evidence.InspectionID, "error", err)
	}

	return nil
}
