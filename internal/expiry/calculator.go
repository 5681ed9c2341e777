package expiry

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Status summarises how urgent a service's expiry is.
type Status string

const (
	StatusExpired  Status = "expired"
	StatusCritical Status = "critical"
	StatusWarning  Status = "warning"
	StatusSafe     Status = "safe"
)

const (
	criticalWindowDays = 7
	warningWindowDays  = 30
	secondsPerDay      = 86400
)

// Snapshot is the derived expiry state of a service at a point in time.
// DaysLeft is nil when the service has no usable expiry date; API responses
// render it as "N/A".
type Snapshot struct {
	Status   Status `json:"status"`
	DaysLeft *int   `json:"days_left"`
}

// Accepted expiry layouts, tried in order. Values without an explicit zone are
// treated as UTC; zoned and unzoned timestamps are never compared directly.
var expiryLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseExpiry parses a stored expiry value and normalises it to UTC.
func ParseExpiry(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("expiry: empty value")
	}

	for _, layout := range expiryLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("expiry: unparseable value %q", value)
}

// ComputeStatus derives the status and remaining days for a service.
//
// Days remaining are computed with a ceiling so any remaining fraction of a day
// still counts: a service expiring in 30.1 days reports 31 days left. The same
// convention feeds both display and reminder triggering.
//
// An empty expiry means the service never expires. A malformed expiry falls
// back to the previously stored status (Safe when none) with nil days; the
// parse error is returned so callers can log it, never aborting the caller.
func ComputeStatus(rawExpiry, storedStatus string, now time.Time) (Snapshot, error) {
	if strings.TrimSpace(rawExpiry) == "" {
		return Snapshot{Status: StatusSafe}, nil
	}

	ts, err := ParseExpiry(rawExpiry)
	if err != nil {
		return Snapshot{Status: fallbackStatus(storedStatus)}, err
	}

	days := daysUntil(ts, now.UTC())
	return Snapshot{Status: StatusForDays(days), DaysLeft: &days}, nil
}

// StatusForDays maps a remaining-day count onto the status enum.
func StatusForDays(daysLeft int) Status {
	switch {
	case daysLeft < 0:
		return StatusExpired
	case daysLeft <= criticalWindowDays:
		return StatusCritical
	case daysLeft <= warningWindowDays:
		return StatusWarning
	default:
		return StatusSafe
	}
}

func daysUntil(expiry, now time.Time) int {
	delta := expiry.Sub(now).Seconds()
	return int(math.Ceil(delta / secondsPerDay))
}

func fallbackStatus(stored string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(stored))) {
	case StatusExpired:
		return StatusExpired
	case StatusCritical:
		return StatusCritical
	case StatusWarning:
		return StatusWarning
	default:
		return StatusSafe
	}
}
