package river

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

var errNotAttached = errors.New("event publisher has no queue client")

// Publisher implements domain.EventPublisher by enqueuing River jobs.
// Services are built before the queue client (its workers call back into
// them), so the client is attached after construction.
type Publisher struct {
	client atomic.Pointer[Client]
}

// NewPublisher creates a publisher. Publish fails until Attach is called.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Attach binds the queue client that Publish inserts into.
func (p *Publisher) Attach(client *Client) {
	p.client.Store(client)
}

// Publish enqueues a domain event as an async job.
func (p *Publisher) Publish(ctx context.Context, event domain.DomainEvent) error {
	client := p.client.Load()
	if client == nil {
		return errNotAttached
	}

	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := client.Insert(ctx, EventJobArgs{
		Event:     string(event.Name),
		TenantID:  event.TenantID,
		SubjectID: event.SubjectID,
		Status:    event.Status,
		At:        at,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
