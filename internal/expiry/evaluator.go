package expiry

import (
	"time"

	"github.com/renewhub/renewhub/internal/models"
)

// DueThresholds returns the reminder thresholds that should be dispatched for
// the service right now: every threshold whose days_before window has been
// reached (daysLeft <= days_before) and whose id is not yet in the service's
// notified-set.
//
// The window comparison is deliberately "<=" rather than an exact day match so
// a sweep that skips a day (downtime, restart) still picks the threshold up on
// the next run. At-most-once delivery is guaranteed by the notified-set, not by
// exact-day timing.
//
// The function is pure with respect to stored state: calling it repeatedly
// without a sweep in between returns the same result. Services without an
// expiry date never fire; services with a malformed expiry are skipped here
// and reported by the sweeper.
func DueThresholds(svc *models.Service, now time.Time) []models.ReminderThreshold {
	if svc == nil {
		return nil
	}

	snap, err := ComputeStatus(svc.ExpiryDate, svc.StoredStatus, now)
	if err != nil || snap.DaysLeft == nil {
		return nil
	}
	daysLeft := *snap.DaysLeft

	var due []models.ReminderThreshold
	for _, threshold := range svc.ReminderThresholds {
		if daysLeft > threshold.DaysBefore {
			continue
		}
		if svc.Notified(threshold.ID) {
			continue
		}
		due = append(due, threshold)
	}
	return due
}
