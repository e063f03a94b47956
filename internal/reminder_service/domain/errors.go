package domain

import "errors"

var (
	// ErrInvoiceNotFound indicates the referenced invoice no longer exists.
	ErrInvoiceNotFound = errors.New("invoice not found")
	// ErrPolicyNotFound indicates the client has no reminder policy row;
	// callers treat this as both phases disabled.
	ErrPolicyNotFound = errors.New("reminder policy not found")
	// ErrOutboxEntryNotFound indicates the referenced outbox entry does not exist.
	ErrOutboxEntryNotFound = errors.New("outbox entry not found")
)
