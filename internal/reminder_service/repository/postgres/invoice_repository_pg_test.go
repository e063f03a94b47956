package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

func setupInvoiceTest(t *testing.T) (domain.InvoiceRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := NewPgInvoiceRepository(mockPool, logger)
	return repo, mockPool
}

func invoiceRowColumns() []string {
	return []string{"id", "workspace_id", "client_id", "status", "due_date", "issued_at", "balance", "created_at", "updated_at"}
}

func TestPgInvoiceRepository_FindIssuedPastDue(t *testing.T) {
	repo, mockPool := setupInvoiceTest(t)
	defer mockPool.Close()

	today := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	id := uuid.New()
	now := time.Now().UTC()

	rows := mockPool.NewRows(invoiceRowColumns()).
		AddRow(id, uuid.New(), uuid.New(), domain.InvoiceStatusIssued,
			time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			250.00, now, now)

	mockPool.ExpectQuery(`WHERE status = \$1 AND due_date < \$2`).
		WithArgs(domain.InvoiceStatusIssued, today).
		WillReturnRows(rows)

	invoices, err := repo.FindIssuedPastDue(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, id, invoices[0].ID)
	assert.Equal(t, domain.InvoiceStatusIssued, invoices[0].Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPgInvoiceRepository_FindByID(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := setupInvoiceTest(t)
		defer mockPool.Close()

		id := uuid.New()
		mockPool.ExpectQuery(`FROM invoices WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	})

	t.Run("DBError", func(t *testing.T) {
		repo, mockPool := setupInvoiceTest(t)
		defer mockPool.Close()

		id := uuid.New()
		dbErr := errors.New("database error")
		mockPool.ExpectQuery(`FROM invoices WHERE id = \$1`).
			WithArgs(id).
			WillReturnError(dbErr)

		_, err := repo.FindByID(context.Background(), id)
		require.Error(t, err)
		assert.Contains(t, err.Error(), dbErr.Error())
	})
}

func TestPgInvoiceRepository_UpdateStatus(t *testing.T) {
	t.Run("Updated", func(t *testing.T) {
		repo, mockPool := setupInvoiceTest(t)
		defer mockPool.Close()

		id := uuid.New()
		mockPool.ExpectExec(`UPDATE invoices SET status = \$2`).
			WithArgs(id, domain.InvoiceStatusOverdue, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateStatus(context.Background(), id, domain.InvoiceStatusOverdue))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := setupInvoiceTest(t)
		defer mockPool.Close()

		id := uuid.New()
		mockPool.ExpectExec(`UPDATE invoices SET status = \$2`).
			WithArgs(id, domain.InvoiceStatusOverdue, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(context.Background(), id, domain.InvoiceStatusOverdue)
		assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	})
}

func TestPgReminderPolicyRepository_GetPolicy(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo := NewPgReminderPolicyRepository(mockPool, logger)

		clientID := uuid.New()
		rows := mockPool.NewRows([]string{"client_id", "reminder_before_due_interval_days", "reminder_after_due_interval_days"}).
			AddRow(clientID, int32(3), nil)

		mockPool.ExpectQuery(`FROM client_reminder_policies`).
			WithArgs(clientID).
			WillReturnRows(rows)

		policy, err := repo.GetPolicy(context.Background(), clientID)
		require.NoError(t, err)
		assert.True(t, policy.BeforeDueEnabled())
		assert.False(t, policy.AfterDueEnabled())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		repo := NewPgReminderPolicyRepository(mockPool, logger)

		clientID := uuid.New()
		mockPool.ExpectQuery(`FROM client_reminder_policies`).
			WithArgs(clientID).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetPolicy(context.Background(), clientID)
		assert.ErrorIs(t, err, domain.ErrPolicyNotFound)
	})
}
