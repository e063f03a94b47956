package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// PgReminderPolicyRepository reads per-client reminder cadence settings.
type PgReminderPolicyRepository struct {
	db     PgxIface
	logger *slog.Logger
}

// NewPgReminderPolicyRepository creates a new instance for PostgreSQL.
func NewPgReminderPolicyRepository(db PgxIface, logger *slog.Logger) domain.ReminderPolicyRepository {
	return &PgReminderPolicyRepository{db: db, logger: logger.With("component", "policy_repository_pg")}
}

func (r *PgReminderPolicyRepository) GetPolicy(ctx context.Context, clientID uuid.UUID) (domain.ReminderPolicy, error) {
	query := `SELECT client_id, reminder_before_due_interval_days, reminder_after_due_interval_days
	          FROM client_reminder_policies
	          WHERE client_id = $1`

	var policy domain.ReminderPolicy
	err := r.db.QueryRow(ctx, query, clientID).Scan(
		&policy.ClientID,
		&policy.BeforeDueDays,
		&policy.AfterDueDays,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ReminderPolicy{}, domain.ErrPolicyNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting reminder policy", "client_id", clientID, "error", err)
		return domain.ReminderPolicy{}, err
	}
	return policy, nil
}
