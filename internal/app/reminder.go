package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// ReminderService emails store owners whose subscription is about to end.
type ReminderService struct {
	repos    domain.Repositories
	notifier domain.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewReminderService creates a reminder service.
func NewReminderService(repos domain.Repositories, notifier domain.Notifier, logger *slog.Logger) *ReminderService {
	return &ReminderService{
		repos:    repos,
		notifier: notifier,
		logger:   orDefault(logger),
		now:      time.Now,
	}
}

// SendRenewalReminders notifies the owner of every store whose active
// subscription ends within days. Each subscription is reminded once; a
// failed delivery is logged, released for the next run, and the batch
// carries on. The count of delivered reminders is returned.
func (s *ReminderService) SendRenewalReminders(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		return 0, &domain.ValidationError{Field: "days", Reason: "must be positive"}
	}

	now := s.now().UTC()
	active := domain.SubscriptionActive
	subs, err := s.repos.Subscriptions().ListEndingBetween(ctx, now, now.AddDate(0, 0, days), &active)
	if err != nil {
		return 0, fmt.Errorf("listing expiring subscriptions: %w", err)
	}

	sent := 0
	for _, sub := range subs {
		claimed, err := s.repos.Subscriptions().MarkReminded(ctx, sub.ID, now)
		if err != nil {
			return sent, err
		}
		if !claimed {
			continue
		}

		if err := s.remind(ctx, sub); err != nil {
			s.logger.WarnContext(ctx, "renewal reminder not sent",
				"subscription_id", sub.ID,
				"tenant_id", sub.TenantID,
				"error", err,
			)
			if err := s.repos.Subscriptions().ClearReminded(ctx, sub.ID); err != nil {
				return sent, err
			}
			continue
		}
		sent++
	}

	s.logger.InfoContext(ctx, "renewal reminders sent", "sent", sent, "due", len(subs))
	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, sub domain.Subscription) error {
	tenant, err := s.repos.Tenants().GetByID(ctx, sub.TenantID)
	if err != nil {
		return err
	}
	owner, err := s.repos.Principals().GetByID(ctx, domain.OwnerOf(tenant))
	if err != nil {
		return err
	}
	plan, err := s.repos.Plans().GetByID(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Your %s subscription ends on %s", plan.Name, sub.EndDate.Format("2 Jan 2006"))
	body := fmt.Sprintf(
		"Hello %s,\n\nThe %s plan of %s ends on %s. Renew before then to keep your branches and staff running.\n",
		owner.FullName, plan.Name, tenant.Name, sub.EndDate.Format("2 Jan 2006"),
	)
	return s.notifier.Send(ctx, owner.Email, subject, body)
}
