package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// Sender is the notification channel boundary. Implementations deliver one
// payment reminder for an invoice and phase, returning a *SendError (or a
// plain error, treated as transient) on failure.
type Sender interface {
	Send(ctx context.Context, invoice *domain.Invoice, phase domain.ReminderPhase) error
	Name() string
}

// ErrorKind classifies a send failure for retry purposes.
type ErrorKind string

const (
	// KindTransient failures are retried on a subsequent day's run.
	KindTransient ErrorKind = "transient"
	// KindPermanent failures terminate the entry immediately.
	KindPermanent ErrorKind = "permanent"
)

// SendError is a classified notification failure.
type SendError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s send failure: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s send failure: %s", e.Kind, e.Message)
}

func (e *SendError) Unwrap() error { return e.Cause }

// NewTransientError wraps a failure that may succeed on a later attempt.
func NewTransientError(message string, cause error) *SendError {
	return &SendError{Kind: KindTransient, Message: message, Cause: cause}
}

// NewPermanentError wraps a failure that will never succeed (invalid
// recipient, channel rejection).
func NewPermanentError(message string, cause error) *SendError {
	return &SendError{Kind: KindPermanent, Message: message, Cause: cause}
}

// IsPermanent reports whether err is a permanently failed send.
// Unclassified errors count as transient.
func IsPermanent(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind == KindPermanent
	}
	return false
}
