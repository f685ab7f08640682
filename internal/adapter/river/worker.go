package river

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// Sweeper expires subscriptions whose term has ended.
type Sweeper interface {
	ExpireSweep(ctx context.Context, now time.Time) (int, error)
}

// Reminder sends renewal reminders for subscriptions ending soon.
type Reminder interface {
	SendRenewalReminders(ctx context.Context, days int) (int, error)
}

// EventWorker processes domain event jobs. Delivery to outside systems
// hangs off here; today it records the event in the log.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
	logger *slog.Logger
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	start := time.Now()
	w.logger.InfoContext(ctx, "processing event",
		"event", job.Args.Event,
		"tenant_id", job.Args.TenantID,
		"subject_id", job.Args.SubjectID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	observe(job.Kind, start, nil)
	return nil
}

// ExpirySweepWorker runs the periodic expiry sweep.
type ExpirySweepWorker struct {
	river.WorkerDefaults[ExpirySweepArgs]
	sweeper Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

// Work expires every subscription past its end date.
func (w *ExpirySweepWorker) Work(ctx context.Context, job *river.Job[ExpirySweepArgs]) error {
	start := time.Now()
	n, err := w.sweeper.ExpireSweep(ctx, w.now().UTC())
	observe(job.Kind, start, err)
	subscriptionsExpired.Add(float64(n))
	if err != nil {
		return err
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "expired subscriptions", "count", n, "job_id", job.ID)
	}
	return nil
}

// ReminderWorker sends renewal reminders.
type ReminderWorker struct {
	river.WorkerDefaults[ReminderArgs]
	reminder Reminder
}

// Work sends reminders for the window carried in the job.
func (w *ReminderWorker) Work(ctx context.Context, job *river.Job[ReminderArgs]) error {
	start := time.Now()
	n, err := w.reminder.SendRenewalReminders(ctx, job.Args.Days)
	observe(job.Kind, start, err)
	remindersSent.Add(float64(n))
	return err
}
