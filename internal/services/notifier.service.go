package services

import (
	"context"
	"encoding/json"
	"fmt"
	"medwatch/internal/logger"
	"medwatch/internal/models"
	"medwatch/internal/queue"
	"medwatch/internal/repositories"
	"medwatch/internal/utils"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// NotifierService implements the persist-first, notify-second contract for
// lifecycle SMS. A notification row is written inside the same transaction as
// the lifecycle change, then a queue task delivers it. A failed delivery is
// retried by the queue against the persisted row; the lifecycle write is
// never rolled back for a notification failure.
type NotifierService struct {
	notifications repositories.NotificationRepository
	sms           *SMSService
	queueClient   *asynq.Client
	log           logger.Logger
}

func NewNotifierService(
	notifications repositories.NotificationRepository,
	sms *SMSService,
	queueClient *asynq.Client,
) *NotifierService {
	return &NotifierService{
		notifications: notifications,
		sms:           sms,
		queueClient:   queueClient,
		log:           logger.New("NotifierService"),
	}
}

// Stage writes a pending notification inside the caller's transaction.
// Recipients are normalized at staging time so retries always send to the
// canonical numbers.
func (ns *NotifierService) Stage(
	ctx context.Context,
	tx *gorm.DB,
	notification *models.Notification,
) error {
	log := ns.log.TraceFromContext(ctx).Function("Stage")

	notification.Recipients = utils.NormalizePhones(notification.Recipients)
	notification.Status = models.NotificationPending

	if err := ns.notifications.CreateTx(ctx, tx, notification); err != nil {
		return log.Err("failed to stage notification", err, "kind", notification.Kind)
	}

	return nil
}

// Enqueue schedules delivery of a staged notification. Call only after the
// staging transaction has committed.
func (ns *NotifierService) Enqueue(ctx context.Context, notificationID uuid.UUID) error {
	log := ns.log.TraceFromContext(ctx).Function("Enqueue")

	if err := queue.EnqueueNotification(ctx, ns.queueClient, notificationID.String()); err != nil {
		return log.Err("failed to enqueue notification", err, "notificationID", notificationID)
	}

	log.Info("notification enqueued", "notificationID", notificationID)
	return nil
}

// Dispatch is the queue handler body: load the persisted notification, send
// it, and record the outcome. Returning an error makes the queue retry.
func (ns *NotifierService) Dispatch(ctx context.Context, notificationID uuid.UUID) error {
	log := ns.log.TraceFromContext(ctx).Function("Dispatch")

	notification, err := ns.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return log.Err("failed to load notification", err, "notificationID", notificationID)
	}

	if notification.Status == models.NotificationSent {
		log.Info("notification already sent, skipping", "notificationID", notificationID)
		return nil
	}

	result, err := ns.sms.Send(ctx, SMSRequest{
		Phone:   notification.Recipients,
		Message: notification.Message,
	})
	if err != nil {
		if markErr := ns.notifications.MarkFailed(ctx, notificationID, err.Error()); markErr != nil {
			log.Er("failed to record notification failure", markErr, "notificationID", notificationID)
		}
		return log.Err("notification dispatch failed", err, "notificationID", notificationID)
	}

	if result.StatusCode >= 300 {
		gatewayErr := fmt.Sprintf("gateway status %d: %s", result.StatusCode, string(result.Body))
		if markErr := ns.notifications.MarkFailed(ctx, notificationID, gatewayErr); markErr != nil {
			log.Er("failed to record notification failure", markErr, "notificationID", notificationID)
		}
		return log.ErrMsg("notification rejected by gateway: " + gatewayErr)
	}

	if err := ns.notifications.MarkSent(ctx, notificationID); err != nil {
		return log.Err("failed to mark notification sent", err, "notificationID", notificationID)
	}

	log.Info("notification delivered",
		"notificationID", notificationID,
		"kind", notification.Kind,
		"statusCode", result.StatusCode)
	return nil
}

// SendAdHoc relays a one-off operator message immediately, recording it in
// the notification ledger like any lifecycle SMS. A gateway rejection is
// recorded as a failure but returned to the caller as a result, not an error.
func (ns *NotifierService) SendAdHoc(
	ctx context.Context,
	recipients string,
	message string,
) (*SMSResult, error) {
	log := ns.log.TraceFromContext(ctx).Function("SendAdHoc")

	notification := &models.Notification{
		Kind:       models.NotificationAdHoc,
		Recipients: utils.NormalizePhones(recipients),
		Message:    message,
		Status:     models.NotificationPending,
	}
	if err := ns.notifications.Create(ctx, notification); err != nil {
		return nil, log.Err("failed to record ad hoc notification", err)
	}

	result, err := ns.sms.Send(ctx, SMSRequest{
		Phone:   notification.Recipients,
		Message: notification.Message,
	})
	if err != nil {
		if markErr := ns.notifications.MarkFailed(ctx, notification.ID, err.Error()); markErr != nil {
			log.Er("failed to record ad hoc failure", markErr, "notificationID", notification.ID)
		}
		return nil, log.Err("ad hoc send failed", err, "notificationID", notification.ID)
	}

	if result.StatusCode >= 300 {
		gatewayErr := fmt.Sprintf("gateway status %d: %s", result.StatusCode, string(result.Body))
		if markErr := ns.notifications.MarkFailed(ctx, notification.ID, gatewayErr); markErr != nil {
			log.Er("failed to record ad hoc failure", markErr, "notificationID", notification.ID)
		}
		return result, nil
	}

	if err := ns.notifications.MarkSent(ctx, notification.ID); err != nil {
		log.Er("failed to mark ad hoc notification sent", err, "notificationID", notification.ID)
	}

	log.Info("ad hoc message delivered",
		"notificationID", notification.ID,
		"statusCode", result.StatusCode)
	return result, nil
}

// HandleDispatchTask adapts Dispatch to the asynq handler signature.
func (ns *NotifierService) HandleDispatchTask(ctx context.Context, task *asynq.Task) error {
	log := ns.log.Function("HandleDispatchTask")

	var payload queue.DispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads can never succeed, drop instead of retrying
		return log.Err("failed to unmarshal dispatch payload", fmt.Errorf("%w: %v", asynq.SkipRetry, err))
	}

	notificationID, err := uuid.Parse(payload.NotificationID)
	if err != nil {
		return log.Err("invalid notification id in payload", fmt.Errorf("%w: %v", asynq.SkipRetry, err))
	}

	return ns.Dispatch(ctx, notificationID)
}

// InStoreMessage renders the SMS announcing that impounded stock reached the
// central store.
func InStoreMessage(inspection *models.Inspection, impoundment *models.Impoundment) string {
	return fmt.Sprintf(
		"NDA notice: %d box(es) impounded from %s (ref %s) are now in the central store.",
		impoundment.BoxesImpounded,
		inspection.FacilityName,
		inspection.SerialNumber,
	)
}

// ReleaseMessage renders the SMS announcing a release to the facility client.
func ReleaseMessage(inspection *models.Inspection, release *models.Release) string {
	return fmt.Sprintf(
		"NDA notice: %d box(es) for %s (ref %s) released to %s on %s.",
		release.BoxesReleased,
		inspection.FacilityName,
		inspection.SerialNumber,
		release.ClientName,
		release.ReleaseDate.Format("02 Jan 2006"),
	)
}

// ReminderMessage renders the long-stay reminder for stock still in store.
func ReminderMessage(inspection *models.Inspection, impoundment *models.Impoundment, days int) string {
	return fmt.Sprintf(
		"NDA reminder: %d box(es) from %s (ref %s) have been in the central store for %d days. Please follow up on their release.",
		impoundment.RemainingBoxes(),
		inspection.FacilityName,
		inspection.SerialNumber,
		days,
	)
}
