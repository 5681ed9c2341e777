package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renewhub/renewhub/internal/database/testutil"
)

func TestDashboardStats(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	categories, err := NewCategoryService(db)
	require.NoError(t, err)
	settings, err := NewSettingsService(db)
	require.NoError(t, err)
	inventory, err := NewInventoryService(db, categories, settings)
	require.NoError(t, err)
	inventory.WithClock(func() time.Time { return testNow })

	dashboard, err := NewDashboardService(db)
	require.NoError(t, err)
	dashboard.WithClock(func() time.Time { return testNow })

	ctx := context.Background()
	mk := func(userID, name string, days int, cost float64) {
		_, err := inventory.Create(ctx, userID, CreateServiceInput{
			Name:       name,
			ExpiryDate: testNow.AddDate(0, 0, days).Format(time.RFC3339),
			Cost:       cost,
		})
		require.NoError(t, err)
	}

	mk("user-1", "Expired thing", -5, 10)
	mk("user-1", "Critical thing", 3, 20)
	mk("user-1", "Warning thing", 20, 30)
	mk("user-1", "Safe thing", 90, 40)
	mk("user-2", "Someone else's", 2, 99)

	stats, err := dashboard.Stats(ctx, "user-1", false)
	require.NoError(t, err)
	require.Equal(t, 4, stats.TotalServices)
	require.Equal(t, 1, stats.Expired)
	require.Equal(t, 1, stats.Critical)
	require.Equal(t, 1, stats.Warning)
	require.Equal(t, 1, stats.Safe)
	require.InDelta(t, 100, stats.TotalMonthlyCost, 0.001)

	// Upcoming renewals cover the next 30 days and are sorted by urgency.
	require.Len(t, stats.UpcomingRenewals, 2)
	require.Equal(t, "Critical thing", stats.UpcomingRenewals[0].Name)
	require.Equal(t, "Warning thing", stats.UpcomingRenewals[1].Name)

	// Admins aggregate across every account.
	adminStats, err := dashboard.Stats(ctx, "user-1", true)
	require.NoError(t, err)
	require.Equal(t, 5, adminStats.TotalServices)
	require.Equal(t, 2, adminStats.Critical)
}
