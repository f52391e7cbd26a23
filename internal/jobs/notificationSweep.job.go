package jobs

import (
	"context"
	"time"

	"medwatch/internal/repositories"
	"medwatch/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

// Notifications older than this that are still pending were committed but
// never picked up, usually because the process died between commit and
// enqueue.
const stuckNotificationAge = 30 * time.Minute

// NotificationSweepJob re-enqueues notifications whose dispatch was lost
// after commit.
type NotificationSweepJob struct {
	notifications repositories.NotificationRepository
	notifier      *services.NotifierService
	log           logger.Logger
	schedule      services.Schedule
}

func NewNotificationSweepJob(
	notifications repositories.NotificationRepository,
	notifier *services.NotifierService,
	schedule services.Schedule,
) *NotificationSweepJob {
	log := logger.New("notificationSweepJob")
	log.Info("Creating new notification sweep job", "schedule", schedule)

	return &NotificationSweepJob{
		notifications: notifications,
		notifier:      notifier,
		log:           log,
		schedule:      schedule,
	}
}

func (j *NotificationSweepJob) Name() string {
	return "HourlyNotificationSweep"
}

func (j *NotificationSweepJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	cutoff := time.Now().UTC().Add(-stuckNotificationAge)
	stuck, err := j.notifications.FindStuckPending(ctx, cutoff)
	if err != nil {
		return log.Err("failed to find stuck notifications", err)
	}

	if len(stuck) == 0 {
		return nil
	}

	requeued := 0
	for i := range stuck {
		if err := j.notifier.Enqueue(ctx, stuck[i].ID); err != nil {
			log.Er("failed to re-enqueue notification", err, "notificationID", stuck[i].ID)
			continue
		}
		requeued++
	}

	log.Info("Notification sweep completed", "stuck", len(stuck), "requeued", requeued)
	return nil
}

func (j *NotificationSweepJob) Schedule() services.Schedule {
	return j.schedule
}
