package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// SweepResult reports what a single overdue sweep did.
type SweepResult struct {
	Transitioned int
	Skipped      int
}

// OverdueSweep advances issued invoices past their due date to overdue.
type OverdueSweep struct {
	invoiceRepo domain.InvoiceRepository
	logger      *slog.Logger
}

// NewOverdueSweep creates an OverdueSweep.
func NewOverdueSweep(invoiceRepo domain.InvoiceRepository, logger *slog.Logger) *OverdueSweep {
	return &OverdueSweep{
		invoiceRepo: invoiceRepo,
		logger:      logger.With("component", "overdue_sweep"),
	}
}

// MarkOverdueInvoices transitions every issued invoice with due_date < today
// to overdue. A failed write skips that invoice and the sweep continues;
// failure to list invoices at all propagates to the caller.
func (s *OverdueSweep) MarkOverdueInvoices(ctx context.Context, today time.Time) (SweepResult, error) {
	today = domain.Day(today)
	var result SweepResult

	invoices, err := s.invoiceRepo.FindIssuedPastDue(ctx, today)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list issued past-due invoices", "error", err)
		return result, fmt.Errorf("failed to list issued past-due invoices: %w", err)
	}

	for _, inv := range invoices {
		if err := s.invoiceRepo.UpdateStatus(ctx, inv.ID, domain.InvoiceStatusOverdue); err != nil {
			result.Skipped++
			invoicesSweptCounter.WithLabelValues("skipped").Inc()
			s.logger.ErrorContext(ctx, "Failed to mark invoice overdue, skipping",
				"invoice_id", inv.ID, "due_date", inv.DueDate.Format("2006-01-02"), "error", err)
			continue
		}
		result.Transitioned++
		invoicesSweptCounter.WithLabelValues("transitioned").Inc()
		s.logger.InfoContext(ctx, "Invoice marked overdue",
			"invoice_id", inv.ID, "due_date", inv.DueDate.Format("2006-01-02"))
	}

	s.logger.InfoContext(ctx, "Overdue sweep finished",
		"today", today.Format("2006-01-02"), "transitioned", result.Transitioned, "skipped", result.Skipped)
	return result, nil
}
