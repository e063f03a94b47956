package domain

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReminderPhase identifies which side of the due date a reminder belongs to.
type ReminderPhase string

const (
	PhaseBeforeDue ReminderPhase = "before_due"
	PhaseAfterDue  ReminderPhase = "after_due"
)

// OutboxStatus represents the dispatch state of a reminder outbox entry.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// OutboxEntry is the durable record of one intended reminder send.
// Entries are never deleted; they double as the audit trail.
// The dedupe key guarantees at most one non-failed entry per invoice
// per calendar day.
type OutboxEntry struct {
	ID            uuid.UUID      `json:"id"`
	InvoiceID     uuid.UUID      `json:"invoice_id"`
	Phase         ReminderPhase  `json:"phase"`
	ScheduledDate time.Time      `json:"scheduled_date"`
	Status        OutboxStatus   `json:"status"`
	AttemptCount  int            `json:"attempt_count"`
	LastAttemptAt sql.NullTime   `json:"last_attempt_at,omitempty"`
	LastError     sql.NullString `json:"last_error,omitempty"`
	DedupeKey     string         `json:"dedupe_key"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// NewOutboxEntry creates a pending entry for the given invoice and day.
func NewOutboxEntry(invoiceID uuid.UUID, phase ReminderPhase, scheduledDate time.Time) *OutboxEntry {
	now := time.Now().UTC()
	day := Day(scheduledDate)
	return &OutboxEntry{
		ID:            uuid.New(),
		InvoiceID:     invoiceID,
		Phase:         phase,
		ScheduledDate: day,
		Status:        OutboxStatusPending,
		AttemptCount:  0,
		DedupeKey:     BuildDedupeKey(invoiceID, day),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// BuildDedupeKey derives the deterministic at-most-once-per-day key.
func BuildDedupeKey(invoiceID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("%s:%s", invoiceID, Day(day).Format("2006-01-02"))
}
