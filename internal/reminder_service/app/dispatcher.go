package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/invorium/dunning/internal/platform/messagebroker"
	"github.com/invorium/dunning/internal/reminder_service/adapters/notifier"
	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// DispatchConfig holds configuration specific to the DispatchExecutor.
type DispatchConfig struct {
	// MaxAttempts bounds transient retries; an entry whose attempt count
	// reaches it becomes terminally failed.
	MaxAttempts int `mapstructure:"DISPATCH_MAX_ATTEMPTS"`
	// BatchSize caps how many pending entries one run drains.
	BatchSize int `mapstructure:"DISPATCH_BATCH_SIZE"`
}

// DispatchResult is the aggregate outcome of one executeReminders run.
type DispatchResult struct {
	Sent   int
	Failed int
}

// ReminderDispatchedEvent is published on NATS after each successful send.
type ReminderDispatchedEvent struct {
	EntryID       string `json:"entry_id"`
	InvoiceID     string `json:"invoice_id"`
	Phase         string `json:"phase"`
	ScheduledDate string `json:"scheduled_date"`
	SentAt        string `json:"sent_at"`
}

const reminderDispatchedSubject = "invoicing.reminders.dispatched"

// DispatchExecutor schedules due reminders into the outbox and drains
// pending entries through the notification sender.
type DispatchExecutor struct {
	invoiceRepo domain.InvoiceRepository
	policyRepo  domain.ReminderPolicyRepository
	outboxRepo  domain.OutboxRepository
	sender      notifier.Sender
	natsClient  *messagebroker.NatsClient // optional, nil disables event publication
	logger      *slog.Logger
	config      DispatchConfig
}

// NewDispatchExecutor creates a DispatchExecutor.
func NewDispatchExecutor(
	invoiceRepo domain.InvoiceRepository,
	policyRepo domain.ReminderPolicyRepository,
	outboxRepo domain.OutboxRepository,
	sender notifier.Sender,
	natsClient *messagebroker.NatsClient,
	logger *slog.Logger,
	cfg DispatchConfig,
) *DispatchExecutor {
	return &DispatchExecutor{
		invoiceRepo: invoiceRepo,
		policyRepo:  policyRepo,
		outboxRepo:  outboxRepo,
		sender:      sender,
		natsClient:  natsClient,
		logger:      logger.With("component", "dispatch_executor"),
		config:      cfg,
	}
}

// ExecuteReminders runs the day's dispatch batch: evaluate every remindable
// invoice and enqueue what is due, then drain all pending entries through the
// sender. Individual invoice or entry failures are isolated and counted;
// only outbox or invoice store unavailability aborts the run.
func (d *DispatchExecutor) ExecuteReminders(ctx context.Context, today time.Time) (DispatchResult, error) {
	today = domain.Day(today)
	var result DispatchResult

	if err := d.enqueueDueReminders(ctx, today); err != nil {
		return result, err
	}

	pending, err := d.outboxRepo.ListPending(ctx, d.config.BatchSize)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to list pending outbox entries", "error", err)
		return result, fmt.Errorf("failed to list pending outbox entries: %w", err)
	}

	for _, entry := range pending {
		if d.dispatchEntry(ctx, entry) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	d.logger.InfoContext(ctx, "Reminder dispatch finished",
		"today", today.Format("2006-01-02"), "sent", result.Sent, "failed", result.Failed)
	return result, nil
}

// enqueueDueReminders evaluates every remindable invoice for today and
// enqueues the eligible ones. Per-invoice failures are logged and skipped.
func (d *DispatchExecutor) enqueueDueReminders(ctx context.Context, today time.Time) error {
	invoices, err := d.invoiceRepo.FindRemindable(ctx)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to list remindable invoices", "error", err)
		return fmt.Errorf("failed to list remindable invoices: %w", err)
	}

	for _, inv := range invoices {
		policy, err := d.policyRepo.GetPolicy(ctx, inv.ClientID)
		if err != nil {
			if errors.Is(err, domain.ErrPolicyNotFound) {
				continue // no policy row means reminders are disabled for this client
			}
			d.logger.ErrorContext(ctx, "Failed to load reminder policy, skipping invoice",
				"invoice_id", inv.ID, "client_id", inv.ClientID, "error", err)
			continue
		}

		history, err := d.outboxRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to load outbox history, skipping invoice",
				"invoice_id", inv.ID, "error", err)
			continue
		}

		eligible, ok := EvaluateReminder(inv, policy, today, history)
		if !ok {
			continue
		}

		entry := domain.NewOutboxEntry(eligible.InvoiceID, eligible.Phase, eligible.ScheduledDate)
		stored, created, err := d.outboxRepo.EnqueueIfAbsent(ctx, entry)
		if err != nil {
			d.logger.ErrorContext(ctx, "Failed to enqueue reminder, skipping invoice",
				"invoice_id", inv.ID, "error", err)
			continue
		}
		if created {
			d.logger.InfoContext(ctx, "Reminder enqueued",
				"entry_id", stored.ID, "invoice_id", inv.ID, "phase", eligible.Phase,
				"scheduled_date", eligible.ScheduledDate.Format("2006-01-02"))
		}
	}
	return nil
}

// dispatchEntry sends one pending entry and records the outcome.
// Returns true when the reminder was sent.
func (d *DispatchExecutor) dispatchEntry(ctx context.Context, entry *domain.OutboxEntry) bool {
	timer := prometheus.NewTimer(dispatchDurationHist.WithLabelValues(string(entry.Phase)))
	defer timer.ObserveDuration()

	now := time.Now().UTC()

	invoice, err := d.invoiceRepo.FindByID(ctx, entry.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			d.recordFailure(ctx, entry, now, "invoice no longer exists", true)
			return false
		}
		d.recordFailure(ctx, entry, now, fmt.Sprintf("failed to load invoice: %v", err), false)
		return false
	}
	if !invoice.Remindable() {
		// Paid or cancelled since the entry was enqueued; never send.
		d.recordFailure(ctx, entry, now, fmt.Sprintf("invoice is %s", invoice.Status), true)
		return false
	}

	if err := d.sender.Send(ctx, invoice, entry.Phase); err != nil {
		permanent := notifier.IsPermanent(err)
		d.recordFailure(ctx, entry, now, err.Error(), permanent)
		return false
	}

	if err := d.outboxRepo.RecordSent(ctx, entry.ID, now); err != nil {
		// The reminder went out but the outcome write failed; surface loudly,
		// the partial-unique dedupe key still prevents a same-day duplicate.
		d.logger.ErrorContext(ctx, "Failed to record sent outcome",
			"entry_id", entry.ID, "invoice_id", entry.InvoiceID, "error", err)
	}
	remindersDispatchedCounter.WithLabelValues(string(entry.Phase), "sent").Inc()
	d.logger.InfoContext(ctx, "Reminder sent",
		"entry_id", entry.ID, "invoice_id", entry.InvoiceID, "phase", entry.Phase, "sender", d.sender.Name())

	d.publishDispatched(ctx, entry, now)
	return true
}

// recordFailure books a failed attempt. Terminal failures, and transient
// failures that exhaust the attempt budget, flip the entry to failed.
func (d *DispatchExecutor) recordFailure(ctx context.Context, entry *domain.OutboxEntry, at time.Time, reason string, permanent bool) {
	terminal := permanent || entry.AttemptCount+1 >= d.config.MaxAttempts

	outcome := "transient_failure"
	if permanent {
		outcome = "permanent_failure"
	}
	remindersDispatchedCounter.WithLabelValues(string(entry.Phase), outcome).Inc()

	if terminal {
		d.logger.WarnContext(ctx, "Reminder terminally failed",
			"entry_id", entry.ID, "invoice_id", entry.InvoiceID, "reason", reason,
			"attempts", entry.AttemptCount+1, "permanent", permanent)
	} else {
		d.logger.WarnContext(ctx, "Reminder attempt failed, will retry on a later run",
			"entry_id", entry.ID, "invoice_id", entry.InvoiceID, "reason", reason,
			"attempts", entry.AttemptCount+1, "max_attempts", d.config.MaxAttempts)
	}

	if err := d.outboxRepo.RecordFailure(ctx, entry.ID, at, reason, terminal); err != nil {
		d.logger.ErrorContext(ctx, "Failed to record failure outcome",
			"entry_id", entry.ID, "invoice_id", entry.InvoiceID, "error", err)
	}
}

// publishDispatched emits the audit event; failures are logged, never fatal.
func (d *DispatchExecutor) publishDispatched(ctx context.Context, entry *domain.OutboxEntry, sentAt time.Time) {
	if d.natsClient == nil {
		return
	}
	event := ReminderDispatchedEvent{
		EntryID:       entry.ID.String(),
		InvoiceID:     entry.InvoiceID.String(),
		Phase:         string(entry.Phase),
		ScheduledDate: entry.ScheduledDate.Format("2006-01-02"),
		SentAt:        sentAt.Format(time.RFC3339),
	}
	data, err := json.Marshal(event)
	if err != nil {
		d.logger.ErrorContext(ctx, "Failed to marshal dispatched event", "entry_id", entry.ID, "error", err)
		return
	}
	if err := d.natsClient.Publish(ctx, reminderDispatchedSubject, data); err != nil {
		d.logger.WarnContext(ctx, "Failed to publish dispatched event",
			"entry_id", entry.ID, "subject", reminderDispatchedSubject, "error", err)
	}
}
