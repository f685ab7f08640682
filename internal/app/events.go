package app

import (
	"context"
	"log/slog"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// events publishes after commit. A failed publish is logged, never returned:
// the state change it describes has already happened.
type events struct {
	publisher domain.EventPublisher
	logger    *slog.Logger
}

func (e events) publish(ctx context.Context, batch ...domain.DomainEvent) {
	for _, ev := range batch {
		if err := e.publisher.Publish(ctx, ev); err != nil {
			e.logger.WarnContext(ctx, "publishing event",
				"event", ev.Name,
				"tenant_id", ev.TenantID,
				"subject_id", ev.SubjectID,
				"error", err,
			)
		}
	}
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
