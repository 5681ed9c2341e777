package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/expiry"
	"github.com/renewhub/renewhub/internal/models"
)

// DashboardStats summarises the caller's inventory for the dashboard page.
type DashboardStats struct {
	TotalServices    int           `json:"total_services"`
	Expired          int           `json:"expired"`
	Critical         int           `json:"critical"`
	Warning          int           `json:"warning"`
	Safe             int           `json:"safe"`
	TotalMonthlyCost float64       `json:"total_monthly_cost"`
	UpcomingRenewals []ServiceView `json:"upcoming_renewals"`
}

// upcomingWindowDays bounds the dashboard's renewal preview list.
const upcomingWindowDays = 30

// DashboardService derives aggregate expiry statistics.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(db *gorm.DB) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	return &DashboardService{db: db, now: time.Now}, nil
}

// WithClock overrides the time source. Intended for tests.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	if now != nil {
		s.now = now
	}
	return s
}

// Stats computes dashboard aggregates over the services visible to the
// caller. Statuses are derived live so the numbers never lag behind the
// stored status column.
func (s *DashboardService) Stats(ctx context.Context, userID string, isAdmin bool) (*DashboardStats, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Service{})
	if !isAdmin {
		query = query.Where("user_id = ?", userID)
	}

	var rows []models.Service
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("dashboard service: load services: %w", err)
	}

	now := s.now()
	stats := &DashboardStats{TotalServices: len(rows)}

	for i := range rows {
		svc := &rows[i]
		snap, _ := expiry.ComputeStatus(svc.ExpiryDate, svc.StoredStatus, now)

		switch snap.Status {
		case expiry.StatusExpired:
			stats.Expired++
		case expiry.StatusCritical:
			stats.Critical++
		case expiry.StatusWarning:
			stats.Warning++
		default:
			stats.Safe++
		}
		stats.TotalMonthlyCost += svc.Cost

		if snap.DaysLeft != nil && *snap.DaysLeft >= 0 && *snap.DaysLeft <= upcomingWindowDays {
			stats.UpcomingRenewals = append(stats.UpcomingRenewals, ServiceView{
				Service:  *svc,
				Status:   snap.Status,
				DaysLeft: snap.DaysLeft,
			})
		}
	}

	sort.Slice(stats.UpcomingRenewals, func(i, j int) bool {
		return *stats.UpcomingRenewals[i].DaysLeft < *stats.UpcomingRenewals[j].DaysLeft
	})

	return stats, nil
}
