package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

const invoiceColumns = `id, workspace_id, client_id, status, due_date, issued_at, balance, created_at, updated_at`

// PgInvoiceRepository is the engine's PostgreSQL view of the invoices table.
type PgInvoiceRepository struct {
	db     PgxIface
	logger *slog.Logger
}

// NewPgInvoiceRepository creates a new instance for PostgreSQL.
func NewPgInvoiceRepository(db PgxIface, logger *slog.Logger) domain.InvoiceRepository {
	return &PgInvoiceRepository{db: db, logger: logger.With("component", "invoice_repository_pg")}
}

// scanInvoice scans a single invoice row.
func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.WorkspaceID,
		&inv.ClientID,
		&inv.Status,
		&inv.DueDate,
		&inv.IssuedAt,
		&inv.Balance,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *PgInvoiceRepository) FindIssuedPastDue(ctx context.Context, today time.Time) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
	          FROM invoices
	          WHERE status = $1 AND due_date < $2
	          ORDER BY due_date ASC`

	rows, err := r.db.Query(ctx, query, domain.InvoiceStatusIssued, domain.Day(today))
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying issued past-due invoices", "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectInvoices(rows)
}

func (r *PgInvoiceRepository) FindRemindable(ctx context.Context) ([]*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + `
	          FROM invoices
	          WHERE status = ANY($1)
	          ORDER BY due_date ASC`

	statuses := []string{string(domain.InvoiceStatusIssued), string(domain.InvoiceStatusOverdue)}
	rows, err := r.db.Query(ctx, query, statuses)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying remindable invoices", "error", err)
		return nil, err
	}
	defer rows.Close()

	return collectInvoices(rows)
}

func (r *PgInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting invoice by ID", "invoice_id", id, "error", err)
		return nil, err
	}
	return inv, nil
}

func (r *PgInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.InvoiceStatus) error {
	query := `UPDATE invoices SET status = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating invoice status", "invoice_id", id, "status", status, "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvoiceNotFound
	}
	return nil
}

func collectInvoices(rows pgx.Rows) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}
