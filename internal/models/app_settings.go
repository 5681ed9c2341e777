package models

import (
	"time"

	"gorm.io/datatypes"
)

// AppSettingsID is the fixed primary key of the singleton settings row.
const AppSettingsID = "app_settings"

// Email provider identifiers.
const (
	EmailProviderResend = "resend"
	EmailProviderSMTP   = "smtp"
)

// AppSettings is the installation-wide configuration row. It is read once per
// sweep run and passed down by value so a concurrent admin update never changes
// behaviour mid-sweep.
type AppSettings struct {
	ID        string    `gorm:"primaryKey;type:varchar(32)" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EmailProvider string `gorm:"type:varchar(32);default:'resend'" json:"email_provider"`
	ResendAPIKey  string `gorm:"type:varchar(255)" json:"resend_api_key"`
	SenderEmail   string `gorm:"type:varchar(255);default:'onboarding@resend.dev'" json:"sender_email"`
	SenderName    string `gorm:"type:varchar(255);default:'Service Renewal Hub'" json:"sender_name"`

	SMTPHost     string `gorm:"type:varchar(255)" json:"smtp_host"`
	SMTPPort     int    `gorm:"default:587" json:"smtp_port"`
	SMTPUsername string `gorm:"type:varchar(255)" json:"smtp_username"`
	SMTPPassword string `gorm:"type:varchar(255)" json:"smtp_password"`
	SMTPUseTLS   bool   `gorm:"default:true" json:"smtp_use_tls"`

	CompanyName    string `gorm:"type:varchar(255);default:'Your Organization'" json:"company_name"`
	CompanyTagline string `gorm:"type:varchar(255);default:'Service Management System'" json:"company_tagline"`
	LogoURL        string `gorm:"type:text" json:"logo_url"`
	PrimaryColor   string `gorm:"type:varchar(16);default:'#06b6d4'" json:"primary_color"`
	AccentColor    string `gorm:"type:varchar(16);default:'#06b6d4'" json:"accent_color"`
	ThemeMode      string `gorm:"type:varchar(16);default:'dark'" json:"theme_mode"`

	// NotificationThresholds are the global day offsets that seed the reminder
	// plan of services registered without an explicit one.
	NotificationThresholds datatypes.JSONSlice[int] `json:"notification_thresholds"`

	UpdatedBy string `gorm:"type:varchar(255)" json:"updated_by"`
}

// DefaultAppSettings returns the settings row created on first access.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		ID:                     AppSettingsID,
		EmailProvider:          EmailProviderResend,
		SenderEmail:            "onboarding@resend.dev",
		SenderName:             "Service Renewal Hub",
		SMTPPort:               587,
		SMTPUseTLS:             true,
		CompanyName:            "Your Organization",
		CompanyTagline:         "Service Management System",
		PrimaryColor:           "#06b6d4",
		AccentColor:            "#06b6d4",
		ThemeMode:              "dark",
		NotificationThresholds: datatypes.NewJSONSlice([]int{30, 7, 1}),
	}
}
