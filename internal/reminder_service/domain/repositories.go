package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceRepository is the engine's read/write view of the billing domain's
// invoice records. The engine only ever writes the issued -> overdue transition.
type InvoiceRepository interface {
	// FindIssuedPastDue returns issued invoices whose due date is strictly
	// before today (calendar comparison).
	FindIssuedPastDue(ctx context.Context, today time.Time) ([]*Invoice, error)
	// FindRemindable returns all invoices in issued or overdue status.
	FindRemindable(ctx context.Context) ([]*Invoice, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status InvoiceStatus) error
}

// ReminderPolicyRepository resolves the per-client reminder cadence.
type ReminderPolicyRepository interface {
	// GetPolicy returns ErrPolicyNotFound when the client has no policy row.
	GetPolicy(ctx context.Context, clientID uuid.UUID) (ReminderPolicy, error)
}

// OutboxRepository is the durable reminder outbox, the engine's only owned
// state. All mutations are scoped to a single entry and rely on the store's
// single-row transactional guarantee for atomicity.
type OutboxRepository interface {
	// EnqueueIfAbsent inserts the entry unless a non-failed entry with the
	// same dedupe key already exists, in which case the existing entry is
	// returned and created is false.
	EnqueueIfAbsent(ctx context.Context, entry *OutboxEntry) (stored *OutboxEntry, created bool, err error)
	// ListPending returns pending entries, oldest scheduled date first,
	// including ones carried over from earlier runs.
	ListPending(ctx context.Context, limit int) ([]*OutboxEntry, error)
	// ListByInvoice returns every entry ever recorded for an invoice.
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*OutboxEntry, error)
	// RecordSent marks a pending entry sent and counts the attempt.
	RecordSent(ctx context.Context, id uuid.UUID, at time.Time) error
	// RecordFailure counts a failed attempt; terminal flips the entry to
	// failed, otherwise it stays pending for a later run.
	RecordFailure(ctx context.Context, id uuid.UUID, at time.Time, reason string, terminal bool) error
}
