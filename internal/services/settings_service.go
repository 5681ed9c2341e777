package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/models"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
)

// UpdateSettingsInput enumerates mutable installation settings. Nil fields are
// left untouched so admins can patch a single value.
type UpdateSettingsInput struct {
	EmailProvider *string
	ResendAPIKey  *string
	SenderEmail   *string
	SenderName    *string

	SMTPHost     *string
	SMTPPort     *int
	SMTPUsername *string
	SMTPPassword *string
	SMTPUseTLS   *bool

	CompanyName    *string
	CompanyTagline *string
	LogoURL        *string
	PrimaryColor   *string
	AccentColor    *string
	ThemeMode      *string

	NotificationThresholds *[]int
}

// PublicSettings is the branding subset exposed without authentication so the
// login page can render before sign in.
type PublicSettings struct {
	CompanyName    string `json:"company_name"`
	CompanyTagline string `json:"company_tagline"`
	LogoURL        string `json:"logo_url"`
	PrimaryColor   string `json:"primary_color"`
	AccentColor    string `json:"accent_color"`
	ThemeMode      string `json:"theme_mode"`
}

// SettingsService manages the installation-wide settings singleton.
type SettingsService struct {
	db *gorm.DB
}

// NewSettingsService constructs a SettingsService instance.
func NewSettingsService(db *gorm.DB) (*SettingsService, error) {
	if db == nil {
		return nil, errors.New("settings service: db is required")
	}
	return &SettingsService{db: db}, nil
}

// Get loads the settings row, creating it with defaults on first access.
func (s *SettingsService) Get(ctx context.Context) (*models.AppSettings, error) {
	ctx = ensureContext(ctx)

	defaults := models.DefaultAppSettings()
	var settings models.AppSettings
	err := s.db.WithContext(ctx).
		Where(models.AppSettings{ID: models.AppSettingsID}).
		Attrs(defaults).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("settings service: load settings: %w", err)
	}
	return &settings, nil
}

// Update patches the settings row and records who changed it.
func (s *SettingsService) Update(ctx context.Context, input UpdateSettingsInput, updatedBy string) (*models.AppSettings, error) {
	ctx = ensureContext(ctx)

	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if input.EmailProvider != nil {
		provider := strings.ToLower(strings.TrimSpace(*input.EmailProvider))
		if provider != models.EmailProviderResend && provider != models.EmailProviderSMTP {
			return nil, apperrors.NewBadRequest("email_provider must be resend or smtp")
		}
		settings.EmailProvider = provider
	}
	if input.ResendAPIKey != nil {
		settings.ResendAPIKey = strings.TrimSpace(*input.ResendAPIKey)
	}
	if input.SenderEmail != nil {
		settings.SenderEmail = normaliseEmail(*input.SenderEmail)
	}
	if input.SenderName != nil {
		settings.SenderName = strings.TrimSpace(*input.SenderName)
	}
	if input.SMTPHost != nil {
		settings.SMTPHost = strings.TrimSpace(*input.SMTPHost)
	}
	if input.SMTPPort != nil {
		if *input.SMTPPort <= 0 || *input.SMTPPort > 65535 {
			return nil, apperrors.NewBadRequest("smtp_port must be between 1 and 65535")
		}
		settings.SMTPPort = *input.SMTPPort
	}
	if input.SMTPUsername != nil {
		settings.SMTPUsername = strings.TrimSpace(*input.SMTPUsername)
	}
	if input.SMTPPassword != nil {
		settings.SMTPPassword = *input.SMTPPassword
	}
	if input.SMTPUseTLS != nil {
		settings.SMTPUseTLS = *input.SMTPUseTLS
	}
	if input.CompanyName != nil {
		settings.CompanyName = strings.TrimSpace(*input.CompanyName)
	}
	if input.CompanyTagline != nil {
		settings.CompanyTagline = strings.TrimSpace(*input.CompanyTagline)
	}
	if input.LogoURL != nil {
		settings.LogoURL = strings.TrimSpace(*input.LogoURL)
	}
	if input.PrimaryColor != nil {
		settings.PrimaryColor = strings.TrimSpace(*input.PrimaryColor)
	}
	if input.AccentColor != nil {
		settings.AccentColor = strings.TrimSpace(*input.AccentColor)
	}
	if input.ThemeMode != nil {
		settings.ThemeMode = strings.TrimSpace(*input.ThemeMode)
	}
	if input.NotificationThresholds != nil {
		thresholds := *input.NotificationThresholds
		if len(thresholds) == 0 {
			return nil, apperrors.NewBadRequest("notification_thresholds must not be empty")
		}
		settings.NotificationThresholds = datatypes.NewJSONSlice(thresholds)
	}

	settings.UpdatedBy = updatedBy

	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, fmt.Errorf("settings service: save settings: %w", err)
	}
	return settings, nil
}

// Public returns the branding subset of the settings row.
func (s *SettingsService) Public(ctx context.Context) (*PublicSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &PublicSettings{
		CompanyName:    settings.CompanyName,
		CompanyTagline: settings.CompanyTagline,
		LogoURL:        settings.LogoURL,
		PrimaryColor:   settings.PrimaryColor,
		AccentColor:    settings.AccentColor,
		ThemeMode:      settings.ThemeMode,
	}, nil
}
