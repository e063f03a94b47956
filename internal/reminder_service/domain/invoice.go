package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is the billing-domain record the reminder engine reads and,
// for the issued -> overdue transition only, writes.
// DueDate is a calendar date stored at UTC midnight.
type Invoice struct {
	ID          uuid.UUID     `json:"id"`
	WorkspaceID uuid.UUID     `json:"workspace_id"`
	ClientID    uuid.UUID     `json:"client_id"`
	Status      InvoiceStatus `json:"status"`
	DueDate     time.Time     `json:"due_date"`
	IssuedAt    time.Time     `json:"issued_at"`
	Balance     float64       `json:"balance"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Remindable reports whether the invoice can still produce reminders.
// Paid and cancelled invoices are terminal for the engine; the issued ->
// overdue transition is never reverted here.
func (i *Invoice) Remindable() bool {
	return i.Status == InvoiceStatusIssued || i.Status == InvoiceStatusOverdue
}
