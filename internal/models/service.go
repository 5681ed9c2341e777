package models

import "gorm.io/datatypes"

// ReminderThreshold configures a reminder relative to a service's expiry date.
// DaysBefore may be negative to schedule a reminder after expiry. Threshold ids
// are unique within their owning service and are generated when absent.
type ReminderThreshold struct {
	ID         string `json:"id"`
	DaysBefore int    `json:"days_before"`
	Label      string `json:"label"`
}

// ServiceOwner is a contact embedded in a service. Owners receive reminder
// emails; they are not user accounts.
type ServiceOwner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Service is a tracked subscription or license.
//
// ExpiryDate is stored as the raw RFC3339 string received from the client; an
// empty value means the service never expires. Parsing happens at read time so
// a malformed date degrades a single service instead of failing a whole query.
type Service struct {
	BaseModel

	UserID       string  `gorm:"type:uuid;index" json:"user_id"`
	Name         string  `gorm:"type:varchar(255);not null" json:"name"`
	Provider     string  `gorm:"type:varchar(255)" json:"provider"`
	CategoryID   *string `gorm:"type:uuid;index" json:"category_id"`
	CategoryName string  `gorm:"type:varchar(255);default:'Uncategorized'" json:"category_name"`

	ExpiryDate           string `gorm:"type:varchar(64)" json:"expiry_date"`
	ExpiryDurationMonths *int   `json:"expiry_duration_months,omitempty"`

	ReminderThresholds datatypes.JSONSlice[ReminderThreshold] `json:"reminder_thresholds"`
	Owners             datatypes.JSONSlice[ServiceOwner]      `json:"owners"`

	// NotificationsSent holds the threshold ids already dispatched for this
	// service. It is cleared whenever the threshold list is replaced.
	NotificationsSent datatypes.JSONSlice[string] `json:"notifications_sent"`

	ContactEmail string  `gorm:"type:varchar(255)" json:"contact_email"`
	ContactName  string  `gorm:"type:varchar(255)" json:"contact_name"`
	Notes        string  `gorm:"type:text" json:"notes"`
	Cost         float64 `gorm:"default:0" json:"cost"`

	// StoredStatus is the last status persisted for the service. It is only
	// consulted when the expiry date cannot be parsed.
	StoredStatus string `gorm:"type:varchar(32);default:'safe'" json:"status"`
}

// Notified reports whether the given threshold id has already been dispatched.
func (s *Service) Notified(thresholdID string) bool {
	for _, id := range s.NotificationsSent {
		if id == thresholdID {
			return true
		}
	}
	return false
}
