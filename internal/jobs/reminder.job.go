package jobs

import (
	"context"
	"time"

	lifecycleController "medwatch/internal/controllers/lifecycle"
	"medwatch/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

// ReminderJob sweeps impounded stock sitting in the central store past the
// configured limit and sends one SMS reminder per record.
type ReminderJob struct {
	lifecycle lifecycleController.LifecycleControllerInterface
	log       logger.Logger
	schedule  services.Schedule
}

func NewReminderJob(
	lifecycle lifecycleController.LifecycleControllerInterface,
	schedule services.Schedule,
) *ReminderJob {
	log := logger.New("reminderJob")
	log.Info("Creating new reminder job", "schedule", schedule)

	return &ReminderJob{
		lifecycle: lifecycle,
		log:       log,
		schedule:  schedule,
	}
}

func (j *ReminderJob) Name() string {
	return "DailyImpoundmentReminders"
}

func (j *ReminderJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	log.Info("Starting reminder sweep")

	sent, err := j.lifecycle.RunReminderSweep(ctx, time.Now().UTC())
	if err != nil {
		return log.Err("reminder sweep failed", err)
	}

	log.Info("Reminder sweep completed", "remindersSent", sent)
	return nil
}

func (j *ReminderJob) Schedule() services.Schedule {
	return j.schedule
}
