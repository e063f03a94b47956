package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

const outboxColumns = `id, invoice_id, phase, scheduled_date, status, attempt_count, last_attempt_at, last_error, dedupe_key, created_at, updated_at`

// PgOutboxRepository is the PostgreSQL reminder outbox, the engine's only
// owned durable state. The partial unique index on dedupe_key (non-failed
// rows) makes EnqueueIfAbsent atomic at the storage layer.
type PgOutboxRepository struct {
	db     PgxIface
	logger *slog.Logger
}

// NewPgOutboxRepository creates a new instance for PostgreSQL.
func NewPgOutboxRepository(db PgxIface, logger *slog.Logger) domain.OutboxRepository {
	return &PgOutboxRepository{db: db, logger: logger.With("component", "outbox_repository_pg")}
}

func scanOutboxEntry(row pgx.Row) (*domain.OutboxEntry, error) {
	var e domain.OutboxEntry
	err := row.Scan(
		&e.ID,
		&e.InvoiceID,
		&e.Phase,
		&e.ScheduledDate,
		&e.Status,
		&e.AttemptCount,
		&e.LastAttemptAt,
		&e.LastError,
		&e.DedupeKey,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgOutboxRepository) EnqueueIfAbsent(ctx context.Context, entry *domain.OutboxEntry) (*domain.OutboxEntry, bool, error) {
	insert := `
		INSERT INTO reminder_outbox (id, invoice_id, phase, scheduled_date, status, attempt_count, dedupe_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (dedupe_key) WHERE status <> 'failed' DO NOTHING
	`
	tag, err := r.db.Exec(ctx, insert,
		entry.ID, entry.InvoiceID, entry.Phase, entry.ScheduledDate, entry.Status,
		entry.AttemptCount, entry.DedupeKey, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting outbox entry", "dedupe_key", entry.DedupeKey, "error", err)
		return nil, false, err
	}
	if tag.RowsAffected() == 1 {
		return entry, true, nil
	}

	// Insert was a no-op; fetch the entry that holds the dedupe key.
	query := `SELECT ` + outboxColumns + `
	          FROM reminder_outbox
	          WHERE dedupe_key = $1 AND status <> 'failed'`
	existing, err := scanOutboxEntry(r.db.QueryRow(ctx, query, entry.DedupeKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The conflicting row vanished between statements; treat as not found.
			return nil, false, domain.ErrOutboxEntryNotFound
		}
		r.logger.ErrorContext(ctx, "Error fetching existing outbox entry", "dedupe_key", entry.DedupeKey, "error", err)
		return nil, false, err
	}
	return existing, false, nil
}

func (r *PgOutboxRepository) ListPending(ctx context.Context, limit int) ([]*domain.OutboxEntry, error) {
	query := `SELECT ` + outboxColumns + `
	          FROM reminder_outbox
	          WHERE status = 'pending'
	          ORDER BY scheduled_date ASC
	          LIMIT $1
	          FOR UPDATE SKIP LOCKED`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing pending outbox entries", "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectOutboxEntries(rows)
}

func (r *PgOutboxRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*domain.OutboxEntry, error) {
	query := `SELECT ` + outboxColumns + `
	          FROM reminder_outbox
	          WHERE invoice_id = $1
	          ORDER BY scheduled_date ASC`

	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing outbox entries for invoice", "invoice_id", invoiceID, "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectOutboxEntries(rows)
}

func (r *PgOutboxRepository) RecordSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE reminder_outbox
		SET status = 'sent', attempt_count = attempt_count + 1, last_attempt_at = $2, last_error = NULL, updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, id, at, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error recording sent outcome", "entry_id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOutboxEntryNotFound
	}
	return nil
}

func (r *PgOutboxRepository) RecordFailure(ctx context.Context, id uuid.UUID, at time.Time, reason string, terminal bool) error {
	status := domain.OutboxStatusPending
	if terminal {
		status = domain.OutboxStatusFailed
	}
	query := `
		UPDATE reminder_outbox
		SET status = $2, attempt_count = attempt_count + 1, last_attempt_at = $3, last_error = $4, updated_at = $5
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, id, status, at, sql.NullString{String: reason, Valid: reason != ""}, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error recording failure outcome", "entry_id", id, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOutboxEntryNotFound
	}
	return nil
}

func collectOutboxEntries(rows pgx.Rows) ([]*domain.OutboxEntry, error) {
	var entries []*domain.OutboxEntry
	for rows.Next() {
		e, err := scanOutboxEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
