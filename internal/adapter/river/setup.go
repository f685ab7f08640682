package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Options wires the workers to the services they drive.
type Options struct {
	Sweeper  Sweeper
	Reminder Reminder
	Logger   *slog.Logger

	// SweepInterval defaults to an hour; the sweep also runs on start.
	SweepInterval time.Duration
	// ReminderInterval defaults to a day.
	ReminderInterval time.Duration
	// ReminderDays is the look-ahead window; it defaults to seven days.
	ReminderDays int
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Hour
	}
	if o.ReminderInterval <= 0 {
		o.ReminderInterval = 24 * time.Hour
	}
	if o.ReminderDays <= 0 {
		o.ReminderDays = 7
	}
}

// Setup runs River's migrations and creates a client with the event,
// expiry and reminder workers registered and the periodic jobs scheduled.
// The caller must call client.Start() to begin processing jobs and
// client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, opts Options) (*Client, error) {
	opts.defaults()
	driver := riversqlite.New(db)

	// River's own tables are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{logger: opts.Logger})

	var periodic []*river.PeriodicJob
	if opts.Sweeper != nil {
		river.AddWorker(workers, &ExpirySweepWorker{sweeper: opts.Sweeper, logger: opts.Logger, now: time.Now})
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(opts.SweepInterval),
			func() (river.JobArgs, *river.InsertOpts) { return ExpirySweepArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}
	if opts.Reminder != nil {
		days := opts.ReminderDays
		river.AddWorker(workers, &ReminderWorker{reminder: opts.Reminder})
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(opts.ReminderInterval),
			func() (river.JobArgs, *river.InsertOpts) { return ReminderArgs{Days: days}, nil },
			nil,
		))
	}

	client, err := river.NewClient(driver, &river.Config{
		Logger: opts.Logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
