package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// DispatchNotificationTask delivers a persisted notification over SMS.
	// The notification row is written in the same transaction as the
	// lifecycle change it announces; this task only reads and sends.
	DispatchNotificationTask = "notification:dispatch"
)

// DispatchPayload carries only the notification ID. The worker loads the row
// so retries always send the current persisted message.
type DispatchPayload struct {
	NotificationID string `json:"notification_id"`
}

// EnqueueNotification schedules delivery of a persisted notification.
func EnqueueNotification(ctx context.Context, client *asynq.Client, notificationID string) error {
	data, err := json.Marshal(DispatchPayload{NotificationID: notificationID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(DispatchNotificationTask, data)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
	}
	if _, err := client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue notification task: %w", err)
	}
	return nil
}
