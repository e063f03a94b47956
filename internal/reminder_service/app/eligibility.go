package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// EligibleReminder is the evaluator's positive decision: one reminder for
// one invoice on one calendar day.
type EligibleReminder struct {
	InvoiceID     uuid.UUID
	Phase         domain.ReminderPhase
	ScheduledDate time.Time
}

// EvaluateReminder decides whether a reminder is due for the invoice on the
// given calendar day. Pure: it only inspects the invoice, the client policy
// and the invoice's outbox history.
//
// Cadence: a reminder falls due every N whole days after the anchor, where
// the anchor is the issue date (before-due phase) or the due date (after-due
// phase), advanced to the most recent sent reminder of the same phase. Day
// zero itself never produces a reminder.
func EvaluateReminder(inv *domain.Invoice, policy domain.ReminderPolicy, today time.Time, history []*domain.OutboxEntry) (EligibleReminder, bool) {
	var none EligibleReminder
	today = domain.Day(today)

	if !inv.Remindable() {
		return none, false
	}

	var phase domain.ReminderPhase
	var anchor time.Time
	var interval int

	switch inv.Status {
	case domain.InvoiceStatusIssued:
		if !policy.BeforeDueEnabled() {
			return none, false
		}
		if !today.Before(domain.Day(inv.DueDate)) {
			return none, false
		}
		phase = domain.PhaseBeforeDue
		interval = int(policy.BeforeDueDays.Int32)
		anchor = domain.Day(inv.IssuedAt)
	case domain.InvoiceStatusOverdue:
		if !policy.AfterDueEnabled() {
			return none, false
		}
		phase = domain.PhaseAfterDue
		interval = int(policy.AfterDueDays.Int32)
		anchor = domain.Day(inv.DueDate)
	}

	if last, ok := lastSentDate(history, phase); ok {
		anchor = domain.LaterDay(anchor, last)
	}

	days := domain.DaysBetween(anchor, today)
	if days <= 0 || days%interval != 0 {
		return none, false
	}

	// Primary idempotency guard: an existing non-failed entry for this
	// invoice/day means the reminder is already scheduled or sent.
	key := domain.BuildDedupeKey(inv.ID, today)
	for _, e := range history {
		if e.DedupeKey == key && e.Status != domain.OutboxStatusFailed {
			return none, false
		}
	}

	return EligibleReminder{
		InvoiceID:     inv.ID,
		Phase:         phase,
		ScheduledDate: today,
	}, true
}

// lastSentDate finds the most recent sent entry of the given phase.
func lastSentDate(history []*domain.OutboxEntry, phase domain.ReminderPhase) (time.Time, bool) {
	var last time.Time
	var found bool
	for _, e := range history {
		if e.Phase != phase || e.Status != domain.OutboxStatusSent {
			continue
		}
		if !found || e.ScheduledDate.After(last) {
			last = e.ScheduledDate
			found = true
		}
	}
	return last, found
}
