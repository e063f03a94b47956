package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func relayTestInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:          uuid.New(),
		WorkspaceID: uuid.New(),
		ClientID:    uuid.New(),
		Status:      domain.InvoiceStatusOverdue,
		DueDate:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		IssuedAt:    time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Balance:     99.50,
	}
}

func TestHTTPEmailSender_Success(t *testing.T) {
	inv := relayTestInvoice()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, inv.ID.String(), body["invoice_id"])
		assert.Equal(t, "after_due", body["phase"])
		assert.Equal(t, "2024-01-10", body["due_date"])

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewHTTPEmailSender(testLogger(), server.URL, "test-key", server.Client())
	err := sender.Send(context.Background(), inv, domain.PhaseAfterDue)
	assert.NoError(t, err)
}

func TestHTTPEmailSender_RejectionIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":422,"message":"no billing contact on file"}`))
	}))
	defer server.Close()

	sender := NewHTTPEmailSender(testLogger(), server.URL, "test-key", server.Client())
	err := sender.Send(context.Background(), relayTestInvoice(), domain.PhaseBeforeDue)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Contains(t, err.Error(), "no billing contact on file")
}

func TestHTTPEmailSender_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender := NewHTTPEmailSender(testLogger(), server.URL, "test-key", server.Client())
	err := sender.Send(context.Background(), relayTestInvoice(), domain.PhaseAfterDue)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestHTTPEmailSender_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	sender := NewHTTPEmailSender(testLogger(), server.URL, "test-key", nil)
	err := sender.Send(context.Background(), relayTestInvoice(), domain.PhaseAfterDue)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestIsPermanent_UnclassifiedErrorIsTransient(t *testing.T) {
	assert.False(t, IsPermanent(context.DeadlineExceeded))
	assert.False(t, IsPermanent(nil))
	assert.True(t, IsPermanent(NewPermanentError("rejected", nil)))
	assert.False(t, IsPermanent(NewTransientError("flaky", nil)))
}
