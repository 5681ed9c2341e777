package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/expiry"
	"github.com/renewhub/renewhub/internal/models"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
	"github.com/renewhub/renewhub/pkg/logger"
	"go.uber.org/zap"
)

// ErrServiceNotFound indicates the requested service does not exist for the caller.
var ErrServiceNotFound = apperrors.New("SERVICE_NOT_FOUND", "Service not found", http.StatusNotFound)

// ThresholdInput describes a reminder threshold as received from clients.
type ThresholdInput struct {
	ID         string `json:"id"`
	DaysBefore int    `json:"days_before"`
	Label      string `json:"label"`
}

// OwnerInput describes a service owner contact as received from clients.
type OwnerInput struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CreateServiceInput describes the fields accepted when registering a service.
type CreateServiceInput struct {
	Name                 string
	Provider             string
	CategoryID           *string
	ExpiryDate           string
	ExpiryDurationMonths *int
	ReminderThresholds   []ThresholdInput
	Owners               []OwnerInput
	ContactEmail         string
	ContactName          string
	Notes                string
	Cost                 float64
}

// UpdateServiceInput enumerates mutable service attributes. Nil fields are
// left untouched; a non-nil ReminderThresholds replaces the whole list and
// resets dispatch history.
type UpdateServiceInput struct {
	Name                 *string
	Provider             *string
	CategoryID           *string
	ClearCategory        bool
	ExpiryDate           *string
	ExpiryDurationMonths *int
	ReminderThresholds   *[]ThresholdInput
	Owners               *[]OwnerInput
	ContactEmail         *string
	ContactName          *string
	Notes                *string
	Cost                 *float64
}

// ServiceView decorates a stored service with its derived expiry state.
type ServiceView struct {
	models.Service
	Status   expiry.Status `json:"status"`
	DaysLeft *int          `json:"days_left"`
}

// InventoryService manages the tracked subscription inventory.
type InventoryService struct {
	db         *gorm.DB
	categories *CategoryService
	settings   *SettingsService
	now        func() time.Time
}

// NewInventoryService constructs an InventoryService instance.
func NewInventoryService(db *gorm.DB, categories *CategoryService, settings *SettingsService) (*InventoryService, error) {
	if db == nil {
		return nil, errors.New("inventory service: db is required")
	}
	if categories == nil {
		return nil, errors.New("inventory service: category service is required")
	}
	if settings == nil {
		return nil, errors.New("inventory service: settings service is required")
	}
	return &InventoryService{db: db, categories: categories, settings: settings, now: time.Now}, nil
}

// WithClock overrides the time source. Intended for tests.
func (s *InventoryService) WithClock(now func() time.Time) *InventoryService {
	if now != nil {
		s.now = now
	}
	return s
}

// defaultReminderPlan builds the reminder plan for services registered without
// one from the installation-wide day offsets in the settings row, so an admin
// changing the global offsets changes what new services get. The stock 30/7/1
// cadence applies only when the settings row cannot be read.
func (s *InventoryService) defaultReminderPlan(ctx context.Context) []models.ReminderThreshold {
	offsets := []int{30, 7, 1}
	if settings, err := s.settings.Get(ctx); err == nil && len(settings.NotificationThresholds) > 0 {
		offsets = []int(settings.NotificationThresholds)
	}

	plan := make([]models.ReminderThreshold, 0, len(offsets))
	for _, days := range offsets {
		plan = append(plan, models.ReminderThreshold{
			ID:         uuid.NewString(),
			DaysBefore: days,
			Label:      fmt.Sprintf("%d-day reminder", days),
		})
	}
	return plan
}

// Create registers a new service for the user. When an expiry duration is
// supplied instead of a date, the expiry is computed from now.
func (s *InventoryService) Create(ctx context.Context, userID string, input CreateServiceInput) (*ServiceView, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}

	now := s.now()
	expiryDate := strings.TrimSpace(input.ExpiryDate)
	if expiryDate == "" && input.ExpiryDurationMonths != nil && *input.ExpiryDurationMonths > 0 {
		expiryDate = now.UTC().AddDate(0, *input.ExpiryDurationMonths, 0).Format(time.RFC3339)
	}
	if expiryDate != "" {
		if _, err := expiry.ParseExpiry(expiryDate); err != nil {
			return nil, apperrors.NewBadRequest("expiry_date is not a recognised timestamp")
		}
	}

	thresholds := normaliseThresholds(input.ReminderThresholds)
	if len(thresholds) == 0 {
		thresholds = s.defaultReminderPlan(ctx)
	}

	svc := &models.Service{
		UserID:               userID,
		Name:                 name,
		Provider:             strings.TrimSpace(input.Provider),
		ExpiryDate:           expiryDate,
		ExpiryDurationMonths: input.ExpiryDurationMonths,
		ReminderThresholds:   datatypes.NewJSONSlice(thresholds),
		Owners:               datatypes.NewJSONSlice(normaliseOwners(input.Owners)),
		NotificationsSent:    datatypes.NewJSONSlice([]string{}),
		ContactEmail:         normaliseEmail(input.ContactEmail),
		ContactName:          strings.TrimSpace(input.ContactName),
		Notes:                input.Notes,
		Cost:                 input.Cost,
	}

	if input.CategoryID != nil && *input.CategoryID != "" {
		category, err := s.categories.Get(ctx, userID, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		svc.CategoryID = &category.ID
		svc.CategoryName = category.Name
	}

	snap, _ := expiry.ComputeStatus(svc.ExpiryDate, "", now)
	svc.StoredStatus = string(snap.Status)

	if err := s.db.WithContext(ctx).Create(svc).Error; err != nil {
		return nil, fmt.Errorf("inventory service: create service: %w", err)
	}

	return s.decorate(svc, now), nil
}

// Get loads a single service visible to the caller.
func (s *InventoryService) Get(ctx context.Context, userID string, isAdmin bool, id string) (*ServiceView, error) {
	ctx = ensureContext(ctx)

	svc, err := s.load(ctx, userID, isAdmin, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(svc, s.now()), nil
}

// List returns the services visible to the caller, soonest expiry first.
// Admins see every service; regular users only their own.
func (s *InventoryService) List(ctx context.Context, userID string, isAdmin bool) ([]ServiceView, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Service{})
	if !isAdmin {
		query = query.Where("user_id = ?", userID)
	}

	var rows []models.Service
	if err := query.Order("expiry_date ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("inventory service: list services: %w", err)
	}

	now := s.now()
	views := make([]ServiceView, 0, len(rows))
	for i := range rows {
		views = append(views, *s.decorate(&rows[i], now))
	}
	return views, nil
}

// CategoryGroup is a category with the visible services filed under it.
type CategoryGroup struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Color    string        `json:"color,omitempty"`
	Icon     string        `json:"icon,omitempty"`
	Services []ServiceView `json:"services"`
}

// GroupedByCategory files the caller's visible services under their
// categories. Empty categories are kept so clients can render them, and
// services without a category land in a synthetic Uncategorized bucket at the
// end of the list.
func (s *InventoryService) GroupedByCategory(ctx context.Context, userID string, isAdmin bool) ([]CategoryGroup, error) {
	ctx = ensureContext(ctx)

	categories, err := s.categories.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	views, err := s.List(ctx, userID, isAdmin)
	if err != nil {
		return nil, err
	}

	groups := make([]CategoryGroup, 0, len(categories)+1)
	index := make(map[string]int, len(categories))
	for _, category := range categories {
		index[category.ID] = len(groups)
		groups = append(groups, CategoryGroup{
			ID:       category.ID,
			Name:     category.Name,
			Color:    category.Color,
			Icon:     category.Icon,
			Services: []ServiceView{},
		})
	}

	uncategorised := CategoryGroup{Name: "Uncategorized", Services: []ServiceView{}}
	for _, view := range views {
		if view.CategoryID == nil {
			uncategorised.Services = append(uncategorised.Services, view)
			continue
		}
		pos, ok := index[*view.CategoryID]
		if !ok {
			// Admins see services filed under other users' categories.
			pos = len(groups)
			index[*view.CategoryID] = pos
			groups = append(groups, CategoryGroup{
				ID:       *view.CategoryID,
				Name:     view.CategoryName,
				Services: []ServiceView{},
			})
		}
		groups[pos].Services = append(groups[pos].Services, view)
	}

	return append(groups, uncategorised), nil
}

// ListAll returns every stored service. Used by the sweep scheduler.
func (s *InventoryService) ListAll(ctx context.Context) ([]models.Service, error) {
	ctx = ensureContext(ctx)

	var rows []models.Service
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("inventory service: list services: %w", err)
	}
	return rows, nil
}

// Count returns the number of stored services.
func (s *InventoryService) Count(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Service{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("inventory service: count services: %w", err)
	}
	return total, nil
}

// Update persists mutable attributes for an existing service. Replacing the
// threshold list clears the dispatch history so the new plan starts fresh.
func (s *InventoryService) Update(ctx context.Context, userID string, isAdmin bool, id string, input UpdateServiceInput) (*ServiceView, error) {
	ctx = ensureContext(ctx)

	svc, err := s.load(ctx, userID, isAdmin, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name is required")
		}
		svc.Name = name
	}
	if input.Provider != nil {
		svc.Provider = strings.TrimSpace(*input.Provider)
	}
	if input.ClearCategory {
		svc.CategoryID = nil
		svc.CategoryName = ""
	} else if input.CategoryID != nil && *input.CategoryID != "" {
		category, err := s.categories.Get(ctx, svc.UserID, *input.CategoryID)
		if err != nil {
			return nil, err
		}
		svc.CategoryID = &category.ID
		svc.CategoryName = category.Name
	}
	if input.ExpiryDate != nil {
		expiryDate := strings.TrimSpace(*input.ExpiryDate)
		if expiryDate != "" {
			if _, err := expiry.ParseExpiry(expiryDate); err != nil {
				return nil, apperrors.NewBadRequest("expiry_date is not a recognised timestamp")
			}
		}
		svc.ExpiryDate = expiryDate
	} else if input.ExpiryDurationMonths != nil && *input.ExpiryDurationMonths > 0 {
		svc.ExpiryDate = now.UTC().AddDate(0, *input.ExpiryDurationMonths, 0).Format(time.RFC3339)
	}
	if input.ExpiryDurationMonths != nil {
		svc.ExpiryDurationMonths = input.ExpiryDurationMonths
	}
	if input.ReminderThresholds != nil {
		thresholds := normaliseThresholds(*input.ReminderThresholds)
		if len(thresholds) == 0 {
			thresholds = s.defaultReminderPlan(ctx)
		}
		svc.ReminderThresholds = datatypes.NewJSONSlice(thresholds)
		svc.NotificationsSent = datatypes.NewJSONSlice([]string{})
	}
	if input.Owners != nil {
		svc.Owners = datatypes.NewJSONSlice(normaliseOwners(*input.Owners))
	}
	if input.ContactEmail != nil {
		svc.ContactEmail = normaliseEmail(*input.ContactEmail)
	}
	if input.ContactName != nil {
		svc.ContactName = strings.TrimSpace(*input.ContactName)
	}
	if input.Notes != nil {
		svc.Notes = *input.Notes
	}
	if input.Cost != nil {
		svc.Cost = *input.Cost
	}

	snap, parseErr := expiry.ComputeStatus(svc.ExpiryDate, svc.StoredStatus, now)
	if parseErr != nil {
		logger.Warn("service has unparseable expiry date",
			zap.String("service_id", svc.ID),
			zap.String("expiry_date", svc.ExpiryDate))
	}
	svc.StoredStatus = string(snap.Status)

	if err := s.db.WithContext(ctx).Save(svc).Error; err != nil {
		return nil, fmt.Errorf("inventory service: update service: %w", err)
	}

	return s.decorate(svc, now), nil
}

// Delete removes a service visible to the caller.
func (s *InventoryService) Delete(ctx context.Context, userID string, isAdmin bool, id string) error {
	ctx = ensureContext(ctx)

	svc, err := s.load(ctx, userID, isAdmin, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(svc).Error; err != nil {
		return fmt.Errorf("inventory service: delete service: %w", err)
	}
	return nil
}

// MarkNotified appends threshold ids to the service's dispatch history and
// refreshes the stored status. Already present ids are skipped.
func (s *InventoryService) MarkNotified(ctx context.Context, serviceID string, thresholdIDs []string) error {
	ctx = ensureContext(ctx)

	if len(thresholdIDs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.Service
		err := tx.First(&svc, "id = ?", serviceID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrServiceNotFound
		}
		if err != nil {
			return fmt.Errorf("inventory service: load service: %w", err)
		}

		for _, id := range thresholdIDs {
			if !svc.Notified(id) {
				svc.NotificationsSent = append(svc.NotificationsSent, id)
			}
		}

		snap, _ := expiry.ComputeStatus(svc.ExpiryDate, svc.StoredStatus, s.now())
		svc.StoredStatus = string(snap.Status)

		if err := tx.Save(&svc).Error; err != nil {
			return fmt.Errorf("inventory service: mark notified: %w", err)
		}
		return nil
	})
}

func (s *InventoryService) load(ctx context.Context, userID string, isAdmin bool, id string) (*models.Service, error) {
	query := s.db.WithContext(ctx)
	if isAdmin {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("id = ? AND user_id = ?", id, userID)
	}

	var svc models.Service
	err := query.First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("inventory service: get service: %w", err)
	}
	return &svc, nil
}

func (s *InventoryService) decorate(svc *models.Service, now time.Time) *ServiceView {
	snap, err := expiry.ComputeStatus(svc.ExpiryDate, svc.StoredStatus, now)
	if err != nil {
		logger.Warn("service has unparseable expiry date",
			zap.String("service_id", svc.ID),
			zap.String("expiry_date", svc.ExpiryDate))
	}
	return &ServiceView{
		Service:  *svc,
		Status:   snap.Status,
		DaysLeft: snap.DaysLeft,
	}
}

func normaliseThresholds(inputs []ThresholdInput) []models.ReminderThreshold {
	out := make([]models.ReminderThreshold, 0, len(inputs))
	for _, in := range inputs {
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, models.ReminderThreshold{
			ID:         id,
			DaysBefore: in.DaysBefore,
			Label:      strings.TrimSpace(in.Label),
		})
	}
	return out
}

func normaliseOwners(inputs []OwnerInput) []models.ServiceOwner {
	out := make([]models.ServiceOwner, 0, len(inputs))
	for _, in := range inputs {
		email := normaliseEmail(in.Email)
		if email == "" {
			continue
		}
		id := strings.TrimSpace(in.ID)
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, models.ServiceOwner{
			ID:    id,
			Name:  strings.TrimSpace(in.Name),
			Email: email,
			Role:  strings.TrimSpace(in.Role),
		})
	}
	return out
}
