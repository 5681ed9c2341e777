package models

import "time"

// Notification log kinds.
const (
	NotificationKindAuto   = "auto_reminder"
	NotificationKindManual = "manual_reminder"
	NotificationKindTest   = "test_email"
)

// Notification log delivery outcomes.
const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// NotificationLog is an append-only record of a single delivery attempt to a
// single recipient. Rows are never updated or deleted; they serve as the audit
// trail and back the at-most-once guarantee together with the per-service
// notified-set.
type NotificationLog struct {
	BaseModel

	ServiceID   string `gorm:"type:uuid;index" json:"service_id"`
	ServiceName string `gorm:"type:varchar(255)" json:"service_name"`

	RecipientEmail string `gorm:"type:varchar(255)" json:"recipient_email"`
	RecipientName  string `gorm:"type:varchar(255)" json:"recipient_name"`

	ThresholdID     string `gorm:"type:varchar(64)" json:"threshold_id"`
	ThresholdLabel  string `gorm:"type:varchar(255)" json:"threshold_label"`
	DaysUntilExpiry int    `json:"days_until_expiry"`

	Kind   string `gorm:"type:varchar(32);index" json:"kind"`
	Status string `gorm:"type:varchar(16)" json:"status"`
	Error  string `gorm:"type:text" json:"error,omitempty"`

	SentAt time.Time `gorm:"index" json:"sent_at"`
}
