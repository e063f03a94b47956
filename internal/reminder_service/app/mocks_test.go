package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// --- Mocks ---

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindIssuedPastDue(ctx context.Context, today time.Time) ([]*domain.Invoice, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindRemindable(ctx context.Context) ([]*domain.Invoice, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.InvoiceStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockReminderPolicyRepository struct {
	mock.Mock
}

func (m *MockReminderPolicyRepository) GetPolicy(ctx context.Context, clientID uuid.UUID) (domain.ReminderPolicy, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).(domain.ReminderPolicy), args.Error(1)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) EnqueueIfAbsent(ctx context.Context, entry *domain.OutboxEntry) (*domain.OutboxEntry, bool, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.OutboxEntry), args.Bool(1), args.Error(2)
}

func (m *MockOutboxRepository) ListPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*domain.OutboxEntry, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) RecordSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockOutboxRepository) RecordFailure(ctx context.Context, id uuid.UUID, at time.Time, reason string, terminal bool) error {
	args := m.Called(ctx, id, at, reason, terminal)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, invoice *domain.Invoice, phase domain.ReminderPhase) error {
	args := m.Called(ctx, invoice, phase)
	return args.Error(0)
}

func (m *MockSender) Name() string { return "mock" }
