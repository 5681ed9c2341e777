package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/renewhub/renewhub/internal/middleware"
	"github.com/renewhub/renewhub/internal/models"
	"github.com/renewhub/renewhub/internal/services"
	"github.com/renewhub/renewhub/internal/sweep"
	"github.com/renewhub/renewhub/pkg/response"
)

// ServiceHandler exposes CRUD endpoints for tracked services plus the manual
// reminder trigger.
type ServiceHandler struct {
	inventory  *services.InventoryService
	settings   *services.SettingsService
	dispatcher *sweep.Dispatcher
}

// NewServiceHandler constructs a ServiceHandler.
func NewServiceHandler(inventory *services.InventoryService, settings *services.SettingsService, dispatcher *sweep.Dispatcher) *ServiceHandler {
	return &ServiceHandler{inventory: inventory, settings: settings, dispatcher: dispatcher}
}

type createServiceRequest struct {
	Name                 string                    `json:"name" validate:"required,max=255"`
	Provider             string                    `json:"provider" validate:"max=255"`
	CategoryID           *string                   `json:"category_id"`
	ExpiryDate           string                    `json:"expiry_date" validate:"max=64"`
	ExpiryDurationMonths *int                      `json:"expiry_duration_months" validate:"omitempty,min=1,max=120"`
	ReminderThresholds   []services.ThresholdInput `json:"reminder_thresholds"`
	Owners               []services.OwnerInput     `json:"owners"`
	ContactEmail         string                    `json:"contact_email" validate:"omitempty,email"`
	ContactName          string                    `json:"contact_name" validate:"max=255"`
	Notes                string                    `json:"notes"`
	Cost                 float64                   `json:"cost" validate:"min=0"`
}

type updateServiceRequest struct {
	Name                 *string                    `json:"name" validate:"omitempty,max=255"`
	Provider             *string                    `json:"provider" validate:"omitempty,max=255"`
	CategoryID           *string                    `json:"category_id"`
	ClearCategory        bool                       `json:"clear_category"`
	ExpiryDate           *string                    `json:"expiry_date" validate:"omitempty,max=64"`
	ExpiryDurationMonths *int                       `json:"expiry_duration_months" validate:"omitempty,min=1,max=120"`
	ReminderThresholds   *[]services.ThresholdInput `json:"reminder_thresholds"`
	Owners               *[]services.OwnerInput     `json:"owners"`
	ContactEmail         *string                    `json:"contact_email" validate:"omitempty,email"`
	ContactName          *string                    `json:"contact_name" validate:"omitempty,max=255"`
	Notes                *string                    `json:"notes"`
	Cost                 *float64                   `json:"cost" validate:"omitempty,min=0"`
}

// GET /api/services
func (h *ServiceHandler) List(c *gin.Context) {
	views, err := h.inventory.List(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, views)
}

// GET /api/services/:id
func (h *ServiceHandler) Get(c *gin.Context) {
	view, err := h.inventory.Get(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// POST /api/services
func (h *ServiceHandler) Create(c *gin.Context) {
	var req createServiceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	view, err := h.inventory.Create(c.Request.Context(), middleware.UserID(c), services.CreateServiceInput{
		Name:                 req.Name,
		Provider:             req.Provider,
		CategoryID:           req.CategoryID,
		ExpiryDate:           req.ExpiryDate,
		ExpiryDurationMonths: req.ExpiryDurationMonths,
		ReminderThresholds:   req.ReminderThresholds,
		Owners:               req.Owners,
		ContactEmail:         req.ContactEmail,
		ContactName:          req.ContactName,
		Notes:                req.Notes,
		Cost:                 req.Cost,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

// PUT /api/services/:id
func (h *ServiceHandler) Update(c *gin.Context) {
	var req updateServiceRequest
	if !bindAndValidate(c, &req) {
		return
	}

	view, err := h.inventory.Update(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c), c.Param("id"), services.UpdateServiceInput{
		Name:                 req.Name,
		Provider:             req.Provider,
		CategoryID:           req.CategoryID,
		ClearCategory:        req.ClearCategory,
		ExpiryDate:           req.ExpiryDate,
		ExpiryDurationMonths: req.ExpiryDurationMonths,
		ReminderThresholds:   req.ReminderThresholds,
		Owners:               req.Owners,
		ContactEmail:         req.ContactEmail,
		ContactName:          req.ContactName,
		Notes:                req.Notes,
		Cost:                 req.Cost,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// DELETE /api/services/:id
func (h *ServiceHandler) Delete(c *gin.Context) {
	if err := h.inventory.Delete(c.Request.Context(), middleware.UserID(c), middleware.IsAdmin(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Service deleted"})
}

// POST /api/services/:id/send-reminder
//
// Manual reminders ignore the notified-set: an explicit request always sends,
// and does not consume any threshold, so the automatic sweep still fires later.
func (h *ServiceHandler) SendReminder(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.inventory.Get(ctx, middleware.UserID(c), middleware.IsAdmin(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	settings, err := h.settings.Get(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	deliveries, err := h.dispatcher.Notify(ctx, &view.Service, nil, models.NotificationKindManual, *settings)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(deliveries) == 0 {
		response.Error(c, sweep.ErrNoRecipients)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deliveries": deliveries})
}
