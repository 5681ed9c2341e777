package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/renewhub/renewhub/internal/database/testutil"
	"github.com/renewhub/renewhub/internal/models"
)

func newSettingsService(t *testing.T) *SettingsService {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewSettingsService(db)
	require.NoError(t, err)
	return svc
}

func TestSettingsCreatedOnFirstAccess(t *testing.T) {
	svc := newSettingsService(t)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.AppSettingsID, settings.ID)
	require.Equal(t, models.EmailProviderResend, settings.EmailProvider)
	require.Equal(t, []int{30, 7, 1}, []int(settings.NotificationThresholds))

	// Second read returns the same row, not a new one.
	again, err := svc.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, settings.ID, again.ID)
}

func TestSettingsPartialUpdate(t *testing.T) {
	svc := newSettingsService(t)
	ctx := context.Background()

	provider := models.EmailProviderSMTP
	host := "smtp.example.com"
	updated, err := svc.Update(ctx, UpdateSettingsInput{
		EmailProvider: &provider,
		SMTPHost:      &host,
	}, "admin-1")
	require.NoError(t, err)

	require.Equal(t, models.EmailProviderSMTP, updated.EmailProvider)
	require.Equal(t, "smtp.example.com", updated.SMTPHost)
	require.Equal(t, "admin-1", updated.UpdatedBy)
	// Untouched fields keep their defaults.
	require.Equal(t, 587, updated.SMTPPort)
	require.Equal(t, "Your Organization", updated.CompanyName)
}

func TestSettingsUpdateValidation(t *testing.T) {
	svc := newSettingsService(t)
	ctx := context.Background()

	bad := "carrier-pigeon"
	_, err := svc.Update(ctx, UpdateSettingsInput{EmailProvider: &bad}, "admin-1")
	require.Error(t, err)

	empty := []int{}
	_, err = svc.Update(ctx, UpdateSettingsInput{NotificationThresholds: &empty}, "admin-1")
	require.Error(t, err)

	port := 70000
	_, err = svc.Update(ctx, UpdateSettingsInput{SMTPPort: &port}, "admin-1")
	require.Error(t, err)
}

func TestSettingsPublicSubset(t *testing.T) {
	svc := newSettingsService(t)
	ctx := context.Background()

	key := "re_secret_key"
	name := "Acme Corp"
	_, err := svc.Update(ctx, UpdateSettingsInput{ResendAPIKey: &key, CompanyName: &name}, "admin-1")
	require.NoError(t, err)

	public, err := svc.Public(ctx)
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", public.CompanyName)
	require.NotEmpty(t, public.PrimaryColor)
}
