package domain

import (
	"database/sql"

	"github.com/google/uuid"
)

// ReminderPolicy is the per-client reminder cadence configuration.
// A NULL interval disables the corresponding phase entirely.
type ReminderPolicy struct {
	ClientID      uuid.UUID     `json:"client_id"`
	BeforeDueDays sql.NullInt32 `json:"before_due_days"`
	AfterDueDays  sql.NullInt32 `json:"after_due_days"`
}

// BeforeDueEnabled reports whether pre-due reminders are configured.
func (p ReminderPolicy) BeforeDueEnabled() bool {
	return p.BeforeDueDays.Valid && p.BeforeDueDays.Int32 > 0
}

// AfterDueEnabled reports whether post-due reminders are configured.
func (p ReminderPolicy) AfterDueEnabled() bool {
	return p.AfterDueDays.Valid && p.AfterDueDays.Int32 > 0
}
