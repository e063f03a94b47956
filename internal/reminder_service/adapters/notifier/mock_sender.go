package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// MockSender is a simulated notification channel for development and
// local runs without a real email relay.
type MockSender struct {
	logger   *slog.Logger
	name     string
	failRate float64 // chance of a simulated transient failure, 0.0 to 1.0
}

// NewMockSender creates a MockSender.
func NewMockSender(logger *slog.Logger, name string, failRate float64) Sender {
	if name == "" {
		name = "mock-sender"
	}
	return &MockSender{
		logger:   logger.With("sender", name),
		name:     name,
		failRate: failRate,
	}
}

func (s *MockSender) Name() string { return s.name }

func (s *MockSender) Send(ctx context.Context, invoice *domain.Invoice, phase domain.ReminderPhase) error {
	if rand.Float64() < s.failRate {
		errMsg := fmt.Sprintf("simulated channel failure for invoice %s", invoice.ID)
		s.logger.WarnContext(ctx, errMsg, "phase", phase)
		return NewTransientError(errMsg, nil)
	}

	s.logger.InfoContext(ctx, "Reminder sent (simulated)",
		"invoice_id", invoice.ID, "phase", phase, "balance", invoice.Balance)
	return nil
}
