package inspectionController

import (
	"context"
	"errors"
	"fmt"
	"medwatch/config"
	"medwatch/internal/database"
	"medwatch/internal/events"
	"medwatch/internal/logger"
	. "medwatch/internal/models"
	"medwatch/internal/repositories"
	"medwatch/internal/services"
	"medwatch/internal/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

type InspectionController struct {
	inspectionRepo     repositories.InspectionRepository
	impoundmentRepo    repositories.ImpoundmentRepository
	counterRepo        repositories.CounterRepository
	transactionService *services.TransactionService
	eventBus           *events.EventBus
	db                 database.DB
	Config             config.Config
	log                logger.Logger
}

type InspectionControllerInterface interface {
	Create(ctx context.Context, user *User, req CreateInspectionRequest) (*Inspection, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error)
	GetBySerialNumber(ctx context.Context, serialNumber string) (*Inspection, error)
	List(ctx context.Context, req ListInspectionsRequest) (*ListInspectionsResponse, error)
	Patch(ctx context.Context, user *User, id uuid.UUID, req PatchInspectionRequest) (*Inspection, error)
}

type ImpoundmentInput struct {
	BoxesImpounded  FlexInt  `json:"boxesImpounded"`
	Officer         string   `json:"officer"`
	ImpoundmentDate string   `json:"impoundmentDate"`
	Reasons         []string `json:"reasons,omitempty"`
}

type CreateInspectionRequest struct {
	FacilityName   string            `json:"facilityName"`
	ContactPhones  string            `json:"contactPhones,omitempty"`
	District       string            `json:"district,omitempty"`
	FacilityType   FacilityType      `json:"facilityType"`
	InspectionDate string            `json:"inspectionDate"`
	Latitude       *float64          `json:"latitude,omitempty"`
	Longitude      *float64          `json:"longitude,omitempty"`
	Checklist      map[string]any    `json:"checklist,omitempty"`
	Progress       map[string]any    `json:"progress,omitempty"`
	Impoundment    *ImpoundmentInput `json:"impoundment,omitempty"`
}

type ListInspectionsRequest struct {
	Before   *time.Time
	District string
	Limit    int
}

type ListInspectionsResponse struct {
	Inspections []Inspection `json:"inspections"`
	// NextBefore is the cursor for the following page; nil when this page is
	// not full
	NextBefore *time.Time `json:"nextBefore,omitempty"`
}

type PatchInspectionRequest struct {
	// Revision the caller last read; the patch loses with a conflict when the
	// stored row moved past it
	Revision int `json:"revision"`

	FacilityName  *string        `json:"facilityName,omitempty"`
	ContactPhones *string        `json:"contactPhones,omitempty"`
	District      *string        `json:"district,omitempty"`
	FacilityType  *FacilityType  `json:"facilityType,omitempty"`
	Checklist     map[string]any `json:"checklist,omitempty"`
	Progress      map[string]any `json:"progress,omitempty"`
}

func New(
	repos repositories.Repository,
	services services.Service,
	eventBus *events.EventBus,
	config config.Config,
	db database.DB,
) InspectionControllerInterface {
	return &InspectionController{
		inspectionRepo:     repos.Inspection,
		impoundmentRepo:    repos.Impoundment,
		counterRepo:        repos.Counter,
		transactionService: services.Transaction,
		eventBus:           eventBus,
		db:                 db,
		Config:             config,
		log:                logger.New("inspectionController"),
	}
}

func (c *InspectionController) Create(
	ctx context.Context,
	user *User,
	req CreateInspectionRequest,
) (*Inspection, error) {
	log := c.log.Function("Create")

	if strings.TrimSpace(req.FacilityName) == "" {
		return nil, log.ErrorWithType(ErrValidation, "facility name is required")
	}

	if req.FacilityType != "" && !req.FacilityType.Valid() {
		return nil, log.ErrorWithType(ErrValidation, "invalid facility type",
			"facilityType", req.FacilityType)
	}

	inspectionDate := time.Now()
	if req.InspectionDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.InspectionDate)
		if err != nil {
			return nil, log.ErrorWithType(ErrValidation, "invalid inspection date",
				"inspectionDate", req.InspectionDate)
		}
		inspectionDate = parsed
	}

	var impoundment *Impoundment
	if req.Impoundment != nil {
		built, err := c.buildImpoundment(log, req.Impoundment)
		if err != nil {
			return nil, err
		}
		impoundment = built
	}

	progress := datatypes.JSONMap(req.Progress)
	if req.Progress == nil && req.Checklist != nil {
		progress = deriveProgress(req.Checklist)
	}

	inspection := &Inspection{
		FacilityName:   strings.TrimSpace(req.FacilityName),
		ContactPhones:  utils.NormalizePhones(req.ContactPhones),
		District:       strings.TrimSpace(req.District),
		FacilityType:   req.FacilityType,
		InspectionDate: inspectionDate,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Checklist:      datatypes.JSONMap(req.Checklist),
		Progress:       progress,
		Revision:       1,
		CreatedByID:    user.ID,
	}

	err := c.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		serial, err := c.counterRepo.NextValue(ctx, tx, InspectionSerialCounter)
		if err != nil {
			return err
		}
		inspection.SerialNumber = FormatSerialNumber(serial)

		if err := c.inspectionRepo.CreateTx(ctx, tx, inspection); err != nil {
			return err
		}

		if impoundment != nil {
			impoundment.InspectionID = inspection.ID
			if err := c.impoundmentRepo.CreateTx(ctx, tx, impoundment); err != nil {
				return err
			}
			inspection.Impoundment = impoundment
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.eventBus.PublishRecordUpdate(events.RECORD_CREATED, inspection.ID, map[string]any{
		"serialNumber": inspection.SerialNumber,
	}); err != nil {
		log.Warn("failed to publish record created event", "inspectionID", inspection.ID, "error", err)
	}

	log.Info("inspection created",
		"inspectionID", inspection.ID,
		"serialNumber", inspection.SerialNumber,
		"hasImpoundment", impoundment != nil)
	return inspection, nil
}

func (c *InspectionController) buildImpoundment(
	log logger.Logger,
	input *ImpoundmentInput,
) (*Impoundment, error) {
	boxes := input.BoxesImpounded.Int()
	if boxes <= 0 {
		return nil, log.ErrorWithType(ErrValidation, "boxes impounded must be a positive integer",
			"boxesImpounded", boxes)
	}

	if strings.TrimSpace(input.Officer) == "" {
		return nil, log.ErrorWithType(ErrValidation, "impounding officer is required")
	}

	impoundmentDate := time.Now()
	if input.ImpoundmentDate != "" {
		parsed, err := time.Parse(time.RFC3339, input.ImpoundmentDate)
		if err != nil {
			return nil, log.ErrorWithType(ErrValidation, "invalid impoundment date",
				"impoundmentDate", input.ImpoundmentDate)
		}
		impoundmentDate = parsed
	}

	return &Impoundment{
		BoxesImpounded:  boxes,
		Officer:         strings.TrimSpace(input.Officer),
		ImpoundmentDate: impoundmentDate,
		Reasons:         datatypes.NewJSONSlice(input.Reasons),
		BoxStatus:       BoxStatusNotYetInStore,
		InventoryStatus: InventoryPendingReview,
	}, nil
}

func (c *InspectionController) GetByID(ctx context.Context, id uuid.UUID) (*Inspection, error) {
	log := c.log.Function("GetByID")

	inspection, err := c.inspectionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, log.ErrorWithType(ErrNotFound, "inspection not found", "id", id)
		}
		return nil, err
	}

	return inspection, nil
}

// GetBySerialNumber resolves the human-facing case reference, the number
// printed on impoundment paperwork and quoted in SMS messages.
func (c *InspectionController) GetBySerialNumber(
	ctx context.Context,
	serialNumber string,
) (*Inspection, error) {
	log := c.log.Function("GetBySerialNumber")

	serial := strings.TrimSpace(serialNumber)
	if serial == "" {
		return nil, log.ErrorWithType(ErrValidation, "serial number is required")
	}

	inspection, err := c.inspectionRepo.GetBySerialNumber(ctx, serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, log.ErrorWithType(ErrNotFound, "inspection not found",
				"serialNumber", serial)
		}
		return nil, err
	}

	return inspection, nil
}

// List pages through inspections newest first. The response cursor is the
// created-at of the last row; passing it back returns strictly older rows, so
// a record can never repeat across pages even as new ones arrive at the top.
func (c *InspectionController) List(
	ctx context.Context,
	req ListInspectionsRequest,
) (*ListInspectionsResponse, error) {
	inspections, err := c.inspectionRepo.List(ctx, repositories.ListQuery{
		Before:   req.Before,
		District: req.District,
		Limit:    req.Limit,
	})
	if err != nil {
		return nil, err
	}

	response := &ListInspectionsResponse{Inspections: inspections}

	if len(inspections) == repositories.EffectiveLimit(req.Limit) {
		last := inspections[len(inspections)-1].CreatedAt
		response.NextBefore = &last
	}

	return response, nil
}

func (c *InspectionController) Patch(
	ctx context.Context,
	user *User,
	id uuid.UUID,
	req PatchInspectionRequest,
) (*Inspection, error) {
	log := c.log.Function("Patch")

	if req.Revision <= 0 {
		return nil, log.ErrorWithType(ErrValidation, "revision is required",
			"revision", req.Revision)
	}

	updates, err := c.buildPatchUpdates(log, req)
	if err != nil {
		return nil, err
	}

	err = c.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return c.inspectionRepo.PatchWithRevision(ctx, tx, id, req.Revision, updates)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, log.ErrorWithType(ErrNotFound, "inspection not found", "id", id)
		}
		return nil, err
	}

	if err := c.eventBus.PublishRecordUpdate(events.RECORD_UPDATED, id, nil); err != nil {
		log.Warn("failed to publish record updated event", "inspectionID", id, "error", err)
	}

	return c.inspectionRepo.GetByID(ctx, id)
}

func (c *InspectionController) buildPatchUpdates(
	log logger.Logger,
	req PatchInspectionRequest,
) (map[string]any, error) {
	updates := map[string]any{}

	if req.FacilityName != nil {
		if strings.TrimSpace(*req.FacilityName) == "" {
			return nil, log.ErrorWithType(ErrValidation, "facility name cannot be empty")
		}
		updates["facility_name"] = strings.TrimSpace(*req.FacilityName)
	}

	if req.ContactPhones != nil {
		updates["contact_phones"] = utils.NormalizePhones(*req.ContactPhones)
	}

	if req.District != nil {
		updates["district"] = strings.TrimSpace(*req.District)
	}

	if req.FacilityType != nil {
		if !req.FacilityType.Valid() {
			return nil, log.ErrorWithType(ErrValidation, "invalid facility type",
				"facilityType", *req.FacilityType)
		}
		updates["facility_type"] = *req.FacilityType
	}

	if req.Checklist != nil {
		updates["checklist"] = datatypes.JSONMap(req.Checklist)
		// A changed checklist invalidates the stored counters; recompute them
		// unless the caller sent its own
		if req.Progress == nil {
			updates["progress"] = deriveProgress(req.Checklist)
		}
	}

	if req.Progress != nil {
		updates["progress"] = datatypes.JSONMap(req.Progress)
	}

	if len(updates) == 0 {
		return nil, log.ErrorWithType(ErrValidation, "no fields to update")
	}

	return updates, nil
}

// deriveProgress rebuilds the per-section answered/total counters from
// checklist answers. Question keys are namespaced "section.question"; a key
// without a section prefix counts as its own section.
func deriveProgress(checklist map[string]any) datatypes.JSONMap {
	sectionKeys := map[string][]string{}
	for key := range checklist {
		section := key
		if dot := strings.Index(key, "."); dot > 0 {
			section = key[:dot]
		}
		sectionKeys[section] = append(sectionKeys[section], key)
	}

	progress := datatypes.JSONMap{}
	for section, keys := range sectionKeys {
		progress[section] = SectionProgress(datatypes.JSONMap(checklist), keys)
	}
	return progress
}

// FormatSerialNumber renders the sequential case reference shown on
// dashboards and SMS messages.
func FormatSerialNumber(value int64) string {
	return fmt.Sprintf("NDA-%06d", value)
}
