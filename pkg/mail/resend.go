package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultResendEndpoint = "https://api.resend.com/emails"

// ResendSettings configure the Resend API mailer.
type ResendSettings struct {
	APIKey   string
	From     string
	Endpoint string // overridable for tests
	Timeout  time.Duration
}

type resendMailer struct {
	cfg    ResendSettings
	client *http.Client
}

// NewResendMailer builds a Mailer that delivers through the Resend HTTP API.
func NewResendMailer(cfg ResendSettings) (Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: resend api key is missing", ErrNotConfigured)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultResendEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &resendMailer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (m *resendMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return fmt.Errorf("resend: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}
	if from == "" {
		return fmt.Errorf("resend: sender address is required")
	}

	body, err := json.Marshal(resendPayload{
		From:    senderHeader(msg.FromName, from),
		To:      recipients,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("resend: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("resend: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr resendError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("resend: %s (status %d)", apiErr.Message, resp.StatusCode)
	}
	return fmt.Errorf("resend: unexpected status %d", resp.StatusCode)
}
