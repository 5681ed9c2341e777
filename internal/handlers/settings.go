package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/internal/sweep"
	appErrors "github.com/renewhub/renewhub/pkg/errors"
	"github.com/renewhub/renewhub/pkg/response"
)

// SettingsHandler exposes the installation settings endpoints.
type SettingsHandler struct {
	service    *services.SettingsService
	dispatcher *sweep.Dispatcher
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(service *services.SettingsService, dispatcher *sweep.Dispatcher) *SettingsHandler {
	return &SettingsHandler{service: service, dispatcher: dispatcher}
}

type updateSettingsRequest struct {
	EmailProvider *string `json:"email_provider" validate:"omitempty,oneof=resend smtp"`
	ResendAPIKey  *string `json:"resend_api_key"`
	SenderEmail   *string `json:"sender_email" validate:"omitempty,email"`
	SenderName    *string `json:"sender_name" validate:"omitempty,max=255"`

	SMTPHost     *string `json:"smtp_host" validate:"omitempty,max=255"`
	SMTPPort     *int    `json:"smtp_port" validate:"omitempty,min=1,max=65535"`
	SMTPUsername *string `json:"smtp_username" validate:"omitempty,max=255"`
	SMTPPassword *string `json:"smtp_password"`
	SMTPUseTLS   *bool   `json:"smtp_use_tls"`

	CompanyName    *string `json:"company_name" validate:"omitempty,max=255"`
	CompanyTagline *string `json:"company_tagline" validate:"omitempty,max=255"`
	LogoURL        *string `json:"logo_url"`
	PrimaryColor   *string `json:"primary_color" validate:"omitempty,max=16"`
	AccentColor    *string `json:"accent_color" validate:"omitempty,max=16"`
	ThemeMode      *string `json:"theme_mode" validate:"omitempty,oneof=light dark"`

	NotificationThresholds *[]int `json:"notification_thresholds"`
}

type testEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// GET /api/settings (admin)
func (h *SettingsHandler) Get(c *gin.Context) {
	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, settings)
}

// PUT /api/settings (admin)
func (h *SettingsHandler) Update(c *gin.Context) {
	var req updateSettingsRequest
	if !bindAndValidate(c, &req) {
		return
	}

	settings, err := h.service.Update(c.Request.Context(), services.UpdateSettingsInput{
		EmailProvider:          req.EmailProvider,
		ResendAPIKey:           req.ResendAPIKey,
		SenderEmail:            req.SenderEmail,
		SenderName:             req.SenderName,
		SMTPHost:               req.SMTPHost,
		SMTPPort:               req.SMTPPort,
		SMTPUsername:           req.SMTPUsername,
		SMTPPassword:           req.SMTPPassword,
		SMTPUseTLS:             req.SMTPUseTLS,
		CompanyName:            req.CompanyName,
		CompanyTagline:         req.CompanyTagline,
		LogoURL:                req.LogoURL,
		PrimaryColor:           req.PrimaryColor,
		AccentColor:            req.AccentColor,
		ThemeMode:              req.ThemeMode,
		NotificationThresholds: req.NotificationThresholds,
	}, middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, settings)
}

// GET /api/settings/public
func (h *SettingsHandler) Public(c *gin.Context) {
	public, err := h.service.Public(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, public)
}

// POST /api/settings/test-email (admin)
//
// The provider's failure reason is returned to the caller so a broken SMTP
// host or revoked API key can be diagnosed from the settings page.
func (h *SettingsHandler) TestEmail(c *gin.Context) {
	var req testEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	settings, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.dispatcher.SendTest(c.Request.Context(), *settings, req.Email); err != nil {
		response.Error(c, appErrors.New("TEST_EMAIL_FAILED", err.Error(), http.StatusBadGateway))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Test email sent"})
}
