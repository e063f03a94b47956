package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/invorium/dunning/internal/reminder_service/domain"
)

// HTTPEmailSender delivers reminders through an email relay's HTTP API.
// The relay owns templates and recipient resolution; the engine only posts
// the invoice reference and phase.
type HTTPEmailSender struct {
	logger     *slog.Logger
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewHTTPEmailSender creates a sender for the given relay endpoint.
// A nil httpClient gets a 10s-timeout default.
func NewHTTPEmailSender(logger *slog.Logger, apiURL, apiKey string, httpClient *http.Client) *HTTPEmailSender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPEmailSender{
		logger:     logger.With("sender", "http_email"),
		httpClient: httpClient,
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

func (s *HTTPEmailSender) Name() string { return "http_email" }

// reminderRequestBody is the relay's expected payload.
type reminderRequestBody struct {
	InvoiceID   string  `json:"invoice_id"`
	WorkspaceID string  `json:"workspace_id"`
	ClientID    string  `json:"client_id"`
	Phase       string  `json:"phase"`
	DueDate     string  `json:"due_date"`
	Balance     float64 `json:"balance"`
}

type relayErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Send posts the reminder to the relay. 2xx is success, 4xx is a permanent
// rejection, anything else (5xx, network error) is transient.
func (s *HTTPEmailSender) Send(ctx context.Context, invoice *domain.Invoice, phase domain.ReminderPhase) error {
	body := reminderRequestBody{
		InvoiceID:   invoice.ID.String(),
		WorkspaceID: invoice.WorkspaceID.String(),
		ClientID:    invoice.ClientID.String(),
		Phase:       string(phase),
		DueDate:     invoice.DueDate.Format("2006-01-02"),
		Balance:     invoice.Balance,
	}

	reqBytes, err := json.Marshal(body)
	if err != nil {
		return NewPermanentError("failed to marshal reminder payload", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(reqBytes))
	if err != nil {
		return NewPermanentError("failed to build relay request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to reach email relay", "error", err, "invoice_id", invoice.ID)
		return NewTransientError("email relay unreachable", err)
	}
	defer httpResp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(httpResp.Body, 64<<10))
	if readErr != nil {
		return NewTransientError(fmt.Sprintf("failed to read relay response (status %d)", httpResp.StatusCode), readErr)
	}

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		s.logger.InfoContext(ctx, "Reminder accepted by email relay",
			"invoice_id", invoice.ID, "phase", phase, "status_code", httpResp.StatusCode)
		return nil
	}

	var relayErr relayErrorResponse
	message := string(respBody)
	if jsonErr := json.Unmarshal(respBody, &relayErr); jsonErr == nil && relayErr.Message != "" {
		message = relayErr.Message
	}

	if httpResp.StatusCode >= 400 && httpResp.StatusCode < 500 {
		s.logger.WarnContext(ctx, "Email relay rejected reminder",
			"invoice_id", invoice.ID, "status_code", httpResp.StatusCode, "message", message)
		return NewPermanentError(fmt.Sprintf("relay rejected reminder (status %d): %s", httpResp.StatusCode, message), nil)
	}

	s.logger.WarnContext(ctx, "Email relay failure",
		"invoice_id", invoice.ID, "status_code", httpResp.StatusCode, "message", message)
	return NewTransientError(fmt.Sprintf("relay failure (status %d): %s", httpResp.StatusCode, message), nil)
}
