package lifecycleController

import (
	"context"
	"errors"
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
	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	// ErrReleased rejects any transition attempted on a released record;
	// Released is terminal
	ErrReleased = errors.New("record already released")
)

// ConfirmationWord is the type-to-confirm value accepted on release, compared
// case-insensitively. The inspection serial number is accepted as well.
const ConfirmationWord = "release"

type LifecycleController struct {
	inspectionRepo     repositories.InspectionRepository
	impoundmentRepo    repositories.ImpoundmentRepository
	transactionService *services.TransactionService
	notifier           *services.NotifierService
	eventBus           *events.EventBus
	db                 database.DB
	Config             config.Config
	log                logger.Logger
}

type LifecycleControllerInterface interface {
	MarkInStore(ctx context.Context, user *User, inspectionID uuid.UUID, req MarkInStoreRequest) (*Inspection, error)
	SubmitRelease(ctx context.Context, user *User, inspectionID uuid.UUID, req ReleaseRequest) (*Inspection, error)
	RunReminderSweep(ctx context.Context, now time.Time) (int, error)
}

type MarkInStoreRequest struct {
	Revision int `json:"revision"`
}

type ReleaseRequest struct {
	Revision         int     `json:"revision"`
	ReleaseDate      string  `json:"releaseDate"`
	ClientName       string  `json:"clientName"`
	Telephone        string  `json:"telephone"`
	ReleasingOfficer string  `json:"releasingOfficer"`
	Comment          string  `json:"comment,omitempty"`
	BoxesReleased    FlexInt `json:"boxesReleased"`
	ConsentConfirmed bool    `json:"consentConfirmed"`
	ConfirmationText string  `json:"confirmationText"`
}

func New(
	repos repositories.Repository,
	services services.Service,
	eventBus *events.EventBus,
	config config.Config,
	db database.DB,
) LifecycleControllerInterface {
	return &LifecycleController{
		inspectionRepo:     repos.Inspection,
		impoundmentRepo:    repos.Impoundment,
		transactionService: services.Transaction,
		notifier:           services.Notifier,
		eventBus:           eventBus,
		db:                 db,
		Config:             config,
		log:                logger.New("lifecycleController"),
	}
}

// MarkInStore moves impounded stock into the central store. The custody write
// and the notification row commit together; delivery happens afterwards and
// its failure never reverses the transition.
func (c *LifecycleController) MarkInStore(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	req MarkInStoreRequest,
) (*Inspection, error) {
	log := c.log.Function("MarkInStore")

	if req.Revision <= 0 {
		return nil, log.ErrorWithType(ErrValidation, "revision is required",
			"revision", req.Revision)
	}

	inspection, impoundment, err := c.loadRecord(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	if impoundment.IsReleased() {
		return nil, log.ErrorWithType(ErrReleased, "cannot move released stock back to store",
			"inspectionID", inspectionID)
	}

	if !impoundment.BoxStatus.CanTransitionTo(BoxStatusInStore) {
		return nil, log.ErrorWithType(ErrValidation, "invalid custody transition",
			"inspectionID", inspectionID,
			"from", impoundment.BoxStatus,
			"to", BoxStatusInStore)
	}

	notification := &Notification{
		InspectionID: &inspection.ID,
		Kind:         NotificationInStore,
		Recipients:   inspection.ContactPhones,
		Message:      services.InStoreMessage(inspection, impoundment),
	}

	err = c.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		now := time.Now()
		impoundment.BoxStatus = BoxStatusInStore
		impoundment.InStoreAt = &now
		if err := c.impoundmentRepo.UpdateTx(ctx, tx, impoundment); err != nil {
			return err
		}

		if err := c.inspectionRepo.PatchWithRevision(ctx, tx, inspection.ID, req.Revision,
			map[string]any{"updated_at": time.Now()}); err != nil {
			return err
		}

		if notification.Recipients != "" {
			return c.notifier.Stage(ctx, tx, notification)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.afterTransition(ctx, log, inspection.ID, notification)

	log.Info("stock marked in store",
		"inspectionID", inspection.ID,
		"serialNumber", inspection.SerialNumber,
		"userID", user.ID)
	return c.inspectionRepo.GetByID(ctx, inspection.ID)
}

// SubmitRelease completes the custody lifecycle. The release record, the
// custody status, and the inventory status are one transaction; the client
// SMS is staged in the same transaction and delivered afterwards.
func (c *LifecycleController) SubmitRelease(
	ctx context.Context,
	user *User,
	inspectionID uuid.UUID,
	req ReleaseRequest,
) (*Inspection, error) {
	log := c.log.Function("SubmitRelease")

	inspection, impoundment, err := c.loadRecord(ctx, inspectionID)
	if err != nil {
		return nil, err
	}

	if impoundment.IsReleased() {
		return nil, log.ErrorWithType(ErrReleased, "stock already released",
			"inspectionID", inspectionID)
	}

	if !impoundment.BoxStatus.CanTransitionTo(BoxStatusReleased) {
		return nil, log.ErrorWithType(ErrValidation, "stock must be in store before release",
			"inspectionID", inspectionID,
			"boxStatus", impoundment.BoxStatus)
	}

	releaseDate, err := c.validateRelease(log, inspection, impoundment, req)
	if err != nil {
		return nil, err
	}

	boxesReleased := req.BoxesReleased.Int()
	release := &Release{
		ImpoundmentID:    impoundment.ID,
		ReleaseDate:      releaseDate,
		ClientName:       strings.TrimSpace(req.ClientName),
		Telephone:        utils.NormalizePhones(req.Telephone),
		ReleasingOfficer: strings.TrimSpace(req.ReleasingOfficer),
		Comment:          strings.TrimSpace(req.Comment),
		BoxesReleased:    boxesReleased,
		CreatedByID:      user.ID,
	}

	remaining := impoundment.BoxesImpounded - boxesReleased

	notification := &Notification{
		InspectionID: &inspection.ID,
		Kind:         NotificationRelease,
		Recipients:   release.Telephone,
		Message:      services.ReleaseMessage(inspection, release),
	}

	err = c.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := c.impoundmentRepo.CreateReleaseTx(ctx, tx, release); err != nil {
			return err
		}

		impoundment.BoxStatus = BoxStatusReleased
		impoundment.InventoryStatus = DeriveInventoryStatus(remaining)
		if err := c.impoundmentRepo.UpdateTx(ctx, tx, impoundment); err != nil {
			return err
		}

		if err := c.inspectionRepo.PatchWithRevision(ctx, tx, inspection.ID, req.Revision,
			map[string]any{"updated_at": time.Now()}); err != nil {
			return err
		}

		return c.notifier.Stage(ctx, tx, notification)
	})
	if err != nil {
		return nil, err
	}

	c.afterTransition(ctx, log, inspection.ID, notification)

	log.Info("stock released",
		"inspectionID", inspection.ID,
		"serialNumber", inspection.SerialNumber,
		"boxesReleased", boxesReleased,
		"remaining", remaining,
		"inventoryStatus", impoundment.InventoryStatus,
		"userID", user.ID)
	return c.inspectionRepo.GetByID(ctx, inspection.ID)
}

func (c *LifecycleController) validateRelease(
	log logger.Logger,
	inspection *Inspection,
	impoundment *Impoundment,
	req ReleaseRequest,
) (time.Time, error) {
	if req.Revision <= 0 {
		return time.Time{}, log.ErrorWithType(ErrValidation, "revision is required",
			"revision", req.Revision)
	}

	if req.ReleaseDate == "" {
		return time.Time{}, log.ErrorWithType(ErrValidation, "release date is required")
	}

	releaseDate, err := time.Parse(time.RFC3339, req.ReleaseDate)
	if err != nil {
		return time.Time{}, log.ErrorWithType(ErrValidation, "invalid release date",
			"releaseDate", req.ReleaseDate)
	}

	if strings.TrimSpace(req.ClientName) == "" {
		return time.Time{}, log.ErrorWithType(ErrValidation, "client name is required")
	}

	if !utils.IsPlausiblePhone(strings.TrimSpace(req.Telephone)) {
		return time.Time{}, log.ErrorWithType(ErrValidation, "client telephone is not a valid phone number",
			"telephone", req.Telephone)
	}

	if strings.TrimSpace(req.ReleasingOfficer) == "" {
		return time.Time{}, log.ErrorWithType(ErrValidation, "releasing officer is required")
	}

	boxesReleased := req.BoxesReleased.Int()
	if boxesReleased <= 0 {
		return time.Time{}, log.ErrorWithType(ErrValidation, "boxes released must be a positive integer",
			"boxesReleased", boxesReleased)
	}

	if boxesReleased > impoundment.BoxesImpounded {
		return time.Time{}, log.ErrorWithType(ErrValidation, "cannot release more boxes than were impounded",
			"boxesReleased", boxesReleased,
			"boxesImpounded", impoundment.BoxesImpounded)
	}

	if !req.ConsentConfirmed {
		return time.Time{}, log.ErrorWithType(ErrValidation, "consent confirmation is required")
	}

	if !confirmationMatches(req.ConfirmationText, inspection.SerialNumber) {
		return time.Time{}, log.ErrorWithType(ErrValidation, "confirmation text does not match")
	}

	return releaseDate, nil
}

// confirmationMatches accepts the confirmation word or the case serial
// number, case-insensitively.
func confirmationMatches(text, serialNumber string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.EqualFold(trimmed, ConfirmationWord) {
		return true
	}
	return serialNumber != "" && strings.EqualFold(trimmed, serialNumber)
}

// RunReminderSweep finds stock sitting in store past the configured limit and
// sends one reminder per record. The conditional claim and the staged
// notification commit together, so the reminder is exactly-once even with
// concurrent sweeps, and a staging failure leaves the record claimable for
// the next sweep.
func (c *LifecycleController) RunReminderSweep(ctx context.Context, now time.Time) (int, error) {
	log := c.log.Function("RunReminderSweep")

	cutoff := now.AddDate(0, 0, -c.Config.ReminderAfterDays)
	candidates, err := c.impoundmentRepo.FindReminderCandidates(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range candidates {
		impoundment := &candidates[i]

		inspection, err := c.inspectionRepo.GetByID(ctx, impoundment.InspectionID)
		if err != nil {
			log.Er("failed to load inspection for reminder", err,
				"inspectionID", impoundment.InspectionID)
			continue
		}

		if inspection.ContactPhones == "" {
			log.Warn("reminder candidate has no contact phones, skipping",
				"inspectionID", inspection.ID)
			continue
		}

		notification := &Notification{
			InspectionID: &inspection.ID,
			Kind:         NotificationReminder,
			Recipients:   inspection.ContactPhones,
			Message: services.ReminderMessage(
				inspection,
				impoundment,
				impoundment.DaysInStore(now),
			),
		}

		claimed := false
		err = c.transactionService.Execute(ctx, func(ctx context.Context, tx *gorm.DB) error {
			won, err := c.claimAndStage(ctx, tx, impoundment.ID, now, notification)
			claimed = won
			return err
		})
		if err != nil {
			log.Er("failed to send reminder", err, "inspectionID", inspection.ID)
			continue
		}
		if !claimed {
			continue
		}

		if err := c.notifier.Enqueue(ctx, notification.ID); err != nil {
			log.Er("failed to enqueue reminder notification", err,
				"notificationID", notification.ID)
		}
		sent++
	}

	log.Info("reminder sweep completed",
		"candidates", len(candidates),
		"remindersSent", sent)
	return sent, nil
}

// claimAndStage claims the reminder and stages its notification inside one
// transaction. Any error rolls the claim back with the stage.
func (c *LifecycleController) claimAndStage(
	ctx context.Context,
	tx *gorm.DB,
	impoundmentID uuid.UUID,
	now time.Time,
	notification *Notification,
) (bool, error) {
	won, err := c.impoundmentRepo.ClaimReminderTx(ctx, tx, impoundmentID, now)
	if err != nil || !won {
		return false, err
	}

	if err := c.notifier.Stage(ctx, tx, notification); err != nil {
		return false, err
	}

	return true, nil
}

func (c *LifecycleController) loadRecord(
	ctx context.Context,
	inspectionID uuid.UUID,
) (*Inspection, *Impoundment, error) {
	log := c.log.Function("loadRecord")

	inspection, err := c.inspectionRepo.GetByID(ctx, inspectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, log.ErrorWithType(ErrNotFound, "inspection not found",
				"inspectionID", inspectionID)
		}
		return nil, nil, err
	}

	if inspection.Impoundment == nil {
		return nil, nil, log.ErrorWithType(ErrValidation, "inspection has no impoundment",
			"inspectionID", inspectionID)
	}

	return inspection, inspection.Impoundment, nil
}

// afterTransition enqueues the staged notification and announces the change.
// Both are best effort: the transition already committed.
func (c *LifecycleController) afterTransition(
	ctx context.Context,
	log logger.Logger,
	inspectionID uuid.UUID,
	notification *Notification,
) {
	if notification.ID != uuid.Nil {
		if err := c.notifier.Enqueue(ctx, notification.ID); err != nil {
			log.Er("failed to enqueue lifecycle notification", err,
				"notificationID", notification.ID)
		}
	}

	if err := c.inspectionRepo.InvalidateCache(ctx, inspectionID); err != nil {
		log.Warn("failed to invalidate inspection cache", "inspectionID", inspectionID, "error", err)
	}

	if err := c.eventBus.PublishRecordUpdate(events.RECORD_UPDATED, inspectionID, nil); err != nil {
		log.Warn("failed to publish record updated event", "inspectionID", inspectionID, "error", err)
	}
}
