package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renewhub/renewhub/internal/database/testutil"
	"github.com/renewhub/renewhub/internal/models"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/pkg/mail"
)

var sweepNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// fakeMailer records sent messages and can be told to fail specific
// recipients.
type fakeMailer struct {
	mu     sync.Mutex
	sent   []mail.Message
	failTo map[string]string
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(msg.To) == 1 {
		if reason, ok := f.failTo[msg.To[0]]; ok {
			return errors.New(reason)
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []string
	for _, msg := range f.sent {
		out = append(out, msg.To...)
	}
	return out
}

func (f *fakeMailer) factory() MailerFactory {
	return func(models.AppSettings) (mail.Mailer, error) { return f, nil }
}

func newDispatcherFixture(t *testing.T, mailer *fakeMailer) (*Dispatcher, *services.LogService) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	logs, err := services.NewLogService(db)
	require.NoError(t, err)

	dispatcher, err := NewDispatcher(logs,
		WithMailerFactory(mailer.factory()),
		WithDispatcherClock(func() time.Time { return sweepNow }),
	)
	require.NoError(t, err)

	return dispatcher, logs
}

func testSettings() models.AppSettings {
	return models.AppSettings{
		CompanyName: "Acme Corp",
		SenderEmail: "no-reply@example.com",
		SenderName:  "Acme Renewals",
	}
}

func reminderTarget(daysLeft int) *models.Service {
	svc := &models.Service{
		Name:       "Object storage",
		ExpiryDate: sweepNow.AddDate(0, 0, daysLeft).Format(time.RFC3339),
		Owners: []models.ServiceOwner{
			{ID: "owner-1", Name: "Ada", Email: "ada@example.com"},
			{ID: "owner-2", Name: "Grace", Email: "grace@example.com"},
			{ID: "owner-3", Name: "Edsger", Email: "edsger@example.com"},
			{ID: "owner-4", Name: "Ada again", Email: "ADA@example.com"},
		},
	}
	svc.ID = "svc-1"
	return svc
}

func TestNotifyLogsEveryDelivery(t *testing.T) {
	mailer := &fakeMailer{failTo: map[string]string{"grace@example.com": "mailbox full"}}
	dispatcher, logs := newDispatcherFixture(t, mailer)

	svc := reminderTarget(5)
	threshold := &models.ReminderThreshold{ID: "t7", DaysBefore: 7, Label: "Second reminder"}

	deliveries, err := dispatcher.Notify(context.Background(), svc, threshold, models.NotificationKindAuto, testSettings())
	require.NoError(t, err)

	// Duplicate owner emails collapse to a single recipient, and one failed
	// send does not stop the others.
	require.Len(t, deliveries, 3)

	byEmail := map[string]Delivery{}
	for _, d := range deliveries {
		byEmail[d.Email] = d
	}
	require.True(t, byEmail["ada@example.com"].Sent)
	require.True(t, byEmail["edsger@example.com"].Sent)
	require.False(t, byEmail["grace@example.com"].Sent)
	require.Equal(t, "mailbox full", byEmail["grace@example.com"].Error)

	rows, total, err := logs.List(context.Background(), "", true, services.ListLogsOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	for _, row := range rows {
		require.Equal(t, svc.ID, row.ServiceID)
		require.Equal(t, "t7", row.ThresholdID)
		require.Equal(t, "Second reminder", row.ThresholdLabel)
		require.Equal(t, 5, row.DaysUntilExpiry)
		require.Equal(t, models.NotificationKindAuto, row.Kind)
		require.True(t, row.SentAt.Equal(sweepNow))
	}

	statuses := map[string]string{}
	for _, row := range rows {
		statuses[row.RecipientEmail] = row.Status
	}
	require.Equal(t, models.NotificationStatusSent, statuses["ada@example.com"])
	require.Equal(t, models.NotificationStatusFailed, statuses["grace@example.com"])
}

func TestNotifyFallsBackToContactEmail(t *testing.T) {
	mailer := &fakeMailer{}
	dispatcher, _ := newDispatcherFixture(t, mailer)

	svc := reminderTarget(3)
	svc.Owners = nil
	svc.ContactEmail = "Billing@Example.com"

	deliveries, err := dispatcher.Notify(context.Background(), svc, nil, models.NotificationKindManual, testSettings())
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.Equal(t, []string{"billing@example.com"}, mailer.sentTo())
}

func TestNotifyRejectsMissingExpiry(t *testing.T) {
	mailer := &fakeMailer{}
	dispatcher, _ := newDispatcherFixture(t, mailer)

	never := reminderTarget(5)
	never.ExpiryDate = ""
	_, err := dispatcher.Notify(context.Background(), never, nil, models.NotificationKindManual, testSettings())
	require.ErrorIs(t, err, ErrNoExpiryDate)
	require.Empty(t, mailer.sentTo())
}

func TestNotifyWithoutRecipientsIsNoOp(t *testing.T) {
	mailer := &fakeMailer{}
	dispatcher, logs := newDispatcherFixture(t, mailer)

	orphan := reminderTarget(5)
	orphan.Owners = nil

	deliveries, err := dispatcher.Notify(context.Background(), orphan, nil, models.NotificationKindManual, testSettings())
	require.NoError(t, err)
	require.Empty(t, deliveries)
	require.Empty(t, mailer.sentTo())

	_, total, err := logs.List(context.Background(), "", true, services.ListLogsOptions{})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestSendTestReturnsProviderError(t *testing.T) {
	mailer := &fakeMailer{failTo: map[string]string{"admin@example.com": "550 relay denied"}}
	dispatcher, logs := newDispatcherFixture(t, mailer)
	ctx := context.Background()

	err := dispatcher.SendTest(ctx, testSettings(), "admin@example.com")
	require.EqualError(t, err, "550 relay denied")

	rows, _, err := logs.List(ctx, "", true, services.ListLogsOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, models.NotificationKindTest, rows[0].Kind)
	require.Equal(t, models.NotificationStatusFailed, rows[0].Status)
	require.Equal(t, "550 relay denied", rows[0].Error)

	require.NoError(t, dispatcher.SendTest(ctx, testSettings(), "other@example.com"))
	require.Equal(t, []string{"other@example.com"}, mailer.sentTo())
}

func TestSendPasswordResetEscapesContent(t *testing.T) {
	mailer := &fakeMailer{}
	dispatcher, _ := newDispatcherFixture(t, mailer)

	err := dispatcher.SendPasswordReset(context.Background(), testSettings(), "ada@example.com", "<Ada>", "123456")
	require.NoError(t, err)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	require.Equal(t, []string{"ada@example.com"}, msg.To)
	require.Contains(t, msg.Subject, "Acme Corp")
	require.Contains(t, msg.HTML, "123456")
	require.Contains(t, msg.HTML, "&lt;Ada&gt;")
}
