package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/renewhub/renewhub/internal/models"
)

func reminderService(daysLeft int, notified ...string) *models.Service {
	svc := &models.Service{
		Name:       "Team Wiki",
		ExpiryDate: anchor.AddDate(0, 0, daysLeft).Format(time.RFC3339),
		ReminderThresholds: datatypes.NewJSONSlice([]models.ReminderThreshold{
			{ID: "t30", DaysBefore: 30, Label: "First reminder"},
			{ID: "t7", DaysBefore: 7, Label: "Second reminder"},
			{ID: "t1", DaysBefore: 1, Label: "Final reminder"},
		}),
		NotificationsSent: datatypes.NewJSONSlice(notified),
	}
	return svc
}

func dueIDs(svc *models.Service) []string {
	var ids []string
	for _, threshold := range DueThresholds(svc, anchor) {
		ids = append(ids, threshold.ID)
	}
	return ids
}

func TestDueThresholdsWindowReached(t *testing.T) {
	// 10 days out: only the 30 day threshold window has been reached.
	require.Equal(t, []string{"t30"}, dueIDs(reminderService(10)))

	// 5 days out with the 30 day reminder already sent: the 7 day one fires.
	require.Equal(t, []string{"t7"}, dueIDs(reminderService(5, "t30")))

	// Just past expiry, nothing sent yet: every window is overdue.
	require.Equal(t, []string{"t30", "t7", "t1"}, dueIDs(reminderService(-1)))
}

func TestDueThresholdsAtMostOnce(t *testing.T) {
	svc := reminderService(5, "t30", "t7")
	require.Empty(t, dueIDs(svc))

	// Repeated evaluation without state changes returns the same answer.
	svc = reminderService(5, "t30")
	first := dueIDs(svc)
	second := dueIDs(svc)
	require.Equal(t, first, second)
}

func TestDueThresholdsResetRefires(t *testing.T) {
	svc := reminderService(5, "t30", "t7")
	require.Empty(t, dueIDs(svc))

	// Clearing the dispatch history makes reached windows due again.
	svc.NotificationsSent = datatypes.NewJSONSlice([]string{})
	require.Equal(t, []string{"t30", "t7"}, dueIDs(svc))
}

func TestDueThresholdsOutsideAllWindows(t *testing.T) {
	require.Empty(t, dueIDs(reminderService(90)))
}

func TestDueThresholdsSkipsUnusableServices(t *testing.T) {
	require.Nil(t, DueThresholds(nil, anchor))

	svc := reminderService(5)
	svc.ExpiryDate = ""
	require.Nil(t, DueThresholds(svc, anchor))

	svc = reminderService(5)
	svc.ExpiryDate = "13/01/2026"
	require.Nil(t, DueThresholds(svc, anchor))
}

func TestDueThresholdsNegativeDaysBefore(t *testing.T) {
	svc := &models.Service{
		Name:       "Grace period",
		ExpiryDate: anchor.AddDate(0, 0, -3).Format(time.RFC3339),
		ReminderThresholds: datatypes.NewJSONSlice([]models.ReminderThreshold{
			{ID: "after", DaysBefore: -2, Label: "Post-expiry nudge"},
		}),
	}
	require.Equal(t, []string{"after"}, dueIDs(svc))
}
