package river

import "time"

// EventJobArgs is a snapshot of a domain event. River serializes it as JSON
// into its job table, so the worker never reads the database.
type EventJobArgs struct {
	Event     string    `json:"event"`
	TenantID  string    `json:"tenant_id"`
	SubjectID string    `json:"subject_id"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "event.published" }

// ExpirySweepArgs triggers one expiry sweep.
type ExpirySweepArgs struct{}

func (ExpirySweepArgs) Kind() string { return "subscription.expiry_sweep" }

// ReminderArgs triggers renewal reminders for subscriptions ending within Days.
type ReminderArgs struct {
	Days int `json:"days"`
}

func (ReminderArgs) Kind() string { return "subscription.renewal_reminder" }
