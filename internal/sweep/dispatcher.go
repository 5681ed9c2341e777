package sweep

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/renewhub/renewhub/internal/expiry"
	"github.com/renewhub/renewhub/internal/models"
	"github.com/renewhub/renewhub/internal/services"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
	"github.com/renewhub/renewhub/pkg/logger"
	"github.com/renewhub/renewhub/pkg/mail"
	"github.com/renewhub/renewhub/pkg/metrics"
)

// ErrNoRecipients indicates a reminder had nobody to deliver to. The
// dispatcher itself treats an empty recipient list as a no-op; this error is
// for callers that need to report it, such as the manual reminder endpoint.
var ErrNoRecipients = apperrors.New("NO_RECIPIENTS", "Service has no owners or contact email", http.StatusBadRequest)

// ErrNoExpiryDate rejects reminders for services that never expire.
var ErrNoExpiryDate = apperrors.New("NO_EXPIRY_DATE", "Service has no usable expiry date", http.StatusBadRequest)

// Delivery is the per-recipient outcome of a dispatch.
type Delivery struct {
	OwnerID string `json:"owner_id,omitempty"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Sent    bool   `json:"sent"`
	Error   string `json:"error,omitempty"`
}

// MailerFactory builds a Mailer from the current installation settings.
type MailerFactory func(settings models.AppSettings) (mail.Mailer, error)

// MailerFromSettings selects the provider configured in the settings row.
func MailerFromSettings(settings models.AppSettings) (mail.Mailer, error) {
	switch settings.EmailProvider {
	case models.EmailProviderSMTP:
		return mail.NewSMTPMailer(mail.SMTPSettings{
			Host:     settings.SMTPHost,
			Port:     settings.SMTPPort,
			Username: settings.SMTPUsername,
			Password: settings.SMTPPassword,
			From:     settings.SenderEmail,
			UseTLS:   settings.SMTPUseTLS,
		})
	case models.EmailProviderResend, "":
		return mail.NewResendMailer(mail.ResendSettings{
			APIKey: settings.ResendAPIKey,
			From:   settings.SenderEmail,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", mail.ErrNotConfigured, settings.EmailProvider)
	}
}

// Dispatcher renders reminder emails, fans them out to every recipient and
// records one log row per delivery attempt.
type Dispatcher struct {
	logs      *services.LogService
	newMailer MailerFactory
	now       func() time.Time
	log       *zap.Logger
}

// DispatcherOption customises the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMailerFactory injects a mailer factory, primarily for testing.
func WithMailerFactory(factory MailerFactory) DispatcherOption {
	return func(d *Dispatcher) {
		if factory != nil {
			d.newMailer = factory
		}
	}
}

// WithDispatcherClock overrides the clock used for log timestamps.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDispatcher constructs a Dispatcher instance.
func NewDispatcher(logs *services.LogService, opts ...DispatcherOption) (*Dispatcher, error) {
	if logs == nil {
		return nil, errors.New("dispatcher: log service is required")
	}

	d := &Dispatcher{
		logs:      logs,
		newMailer: MailerFromSettings,
		now:       time.Now,
		log:       logger.WithModule("sweep"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type recipient struct {
	ownerID string
	name    string
	email   string
}

// Notify sends one reminder email per recipient of the service. Threshold may
// be nil for manual reminders. Every delivery attempt is logged before the
// function returns, so the audit trail is durable even if the caller fails to
// update the service afterwards.
//
// A service with no owners and no contact email yields an empty delivery list
// and no error: there is nothing to notify.
func (d *Dispatcher) Notify(ctx context.Context, svc *models.Service, threshold *models.ReminderThreshold, kind string, settings models.AppSettings) ([]Delivery, error) {
	if svc == nil {
		return nil, errors.New("dispatcher: service is required")
	}

	now := d.now()
	snap, err := expiry.ComputeStatus(svc.ExpiryDate, svc.StoredStatus, now)
	if err != nil || snap.DaysLeft == nil {
		return nil, ErrNoExpiryDate
	}
	daysLeft := *snap.DaysLeft

	recipients := serviceRecipients(svc)
	if len(recipients) == 0 {
		return nil, nil
	}

	mailer, err := d.newMailer(settings)
	if err != nil {
		return nil, err
	}

	deliveries := make([]Delivery, len(recipients))
	var wg sync.WaitGroup
	for i, rcpt := range recipients {
		wg.Add(1)
		go func(i int, rcpt recipient) {
			defer wg.Done()

			delivery := Delivery{OwnerID: rcpt.ownerID, Email: rcpt.email, Name: rcpt.name}
			subject, html, renderErr := renderReminder(settings, svc, rcpt.name, daysLeft)
			if renderErr != nil {
				delivery.Error = renderErr.Error()
				deliveries[i] = delivery
				return
			}

			sendErr := mailer.Send(ctx, mail.Message{
				From:     settings.SenderEmail,
				FromName: settings.SenderName,
				To:       []string{rcpt.email},
				Subject:  subject,
				HTML:     html,
			})
			if sendErr != nil {
				delivery.Error = sendErr.Error()
			} else {
				delivery.Sent = true
			}
			deliveries[i] = delivery
		}(i, rcpt)
	}
	wg.Wait()

	thresholdID, thresholdLabel := "", ""
	if threshold != nil {
		thresholdID = threshold.ID
		thresholdLabel = threshold.Label
	}

	for _, delivery := range deliveries {
		status := models.NotificationStatusSent
		if !delivery.Sent {
			status = models.NotificationStatusFailed
		}
		entry := &models.NotificationLog{
			ServiceID:       svc.ID,
			ServiceName:     svc.Name,
			RecipientEmail:  delivery.Email,
			RecipientName:   delivery.Name,
			ThresholdID:     thresholdID,
			ThresholdLabel:  thresholdLabel,
			DaysUntilExpiry: daysLeft,
			Kind:            kind,
			Status:          status,
			Error:           delivery.Error,
			SentAt:          now,
		}
		if err := d.logs.Append(ctx, entry); err != nil {
			d.log.Error("failed to record notification log",
				zap.String("service_id", svc.ID),
				zap.Error(err))
		}
		metrics.NotificationsSent.WithLabelValues(kind, status).Inc()
	}

	return deliveries, nil
}

// SendTest sends a test email to the given address using the supplied
// settings. Provider failures are returned verbatim so admins can see the
// exact reason, and the attempt is logged like any other notification.
func (d *Dispatcher) SendTest(ctx context.Context, settings models.AppSettings, recipientEmail string) error {
	recipientEmail = strings.TrimSpace(recipientEmail)
	if recipientEmail == "" {
		return apperrors.NewBadRequest("recipient email is required")
	}

	mailer, err := d.newMailer(settings)
	if err == nil {
		subject, html := renderTestEmail(settings)
		err = mailer.Send(ctx, mail.Message{
			From:     settings.SenderEmail,
			FromName: settings.SenderName,
			To:       []string{recipientEmail},
			Subject:  subject,
			HTML:     html,
		})
	}

	status := models.NotificationStatusSent
	errMsg := ""
	if err != nil {
		status = models.NotificationStatusFailed
		errMsg = err.Error()
	}
	entry := &models.NotificationLog{
		ServiceName:    "Test email",
		RecipientEmail: recipientEmail,
		Kind:           models.NotificationKindTest,
		Status:         status,
		Error:          errMsg,
		SentAt:         d.now(),
	}
	if logErr := d.logs.Append(ctx, entry); logErr != nil {
		d.log.Error("failed to record test email log", zap.Error(logErr))
	}
	metrics.NotificationsSent.WithLabelValues(models.NotificationKindTest, status).Inc()

	return err
}

// SendPasswordReset emails a reset code to the account holder.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, settings models.AppSettings, email, name, code string) error {
	mailer, err := d.newMailer(settings)
	if err != nil {
		return err
	}

	company := settings.CompanyName
	if company == "" {
		company = "Service Renewal Hub"
	}
	if strings.TrimSpace(name) == "" {
		name = "there"
	}

	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your %s password reset code is:</p><p style=\"font-size:24px;letter-spacing:4px;\"><strong>%s</strong></p><p>The code expires in 15 minutes. If you did not request a reset, you can ignore this email.</p>",
		template.HTMLEscapeString(name),
		template.HTMLEscapeString(company),
		template.HTMLEscapeString(code),
	)

	return mailer.Send(ctx, mail.Message{
		From:     settings.SenderEmail,
		FromName: settings.SenderName,
		To:       []string{email},
		Subject:  fmt.Sprintf("%s password reset code", company),
		HTML:     html,
	})
}

func serviceRecipients(svc *models.Service) []recipient {
	seen := make(map[string]struct{})
	var out []recipient
	for _, owner := range svc.Owners {
		email := strings.ToLower(strings.TrimSpace(owner.Email))
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, recipient{ownerID: owner.ID, name: owner.Name, email: email})
	}

	if len(out) == 0 {
		if email := strings.ToLower(strings.TrimSpace(svc.ContactEmail)); email != "" {
			out = append(out, recipient{name: svc.ContactName, email: email})
		}
	}
	return out
}
