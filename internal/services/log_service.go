package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/models"
)

// ListLogsOptions controls filtering and pagination for notification logs.
type ListLogsOptions struct {
	ServiceID string
	Page      int
	PageSize  int
}

// LogService exposes the append-only notification history.
type LogService struct {
	db *gorm.DB
}

// NewLogService constructs a LogService instance.
func NewLogService(db *gorm.DB) (*LogService, error) {
	if db == nil {
		return nil, errors.New("log service: db is required")
	}
	return &LogService{db: db}, nil
}

// Append records a delivery attempt. Log rows are never updated or deleted.
func (s *LogService) Append(ctx context.Context, entry *models.NotificationLog) error {
	ctx = ensureContext(ctx)

	if entry == nil {
		return errors.New("log service: entry is required")
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("log service: append log: %w", err)
	}
	return nil
}

// List returns notification logs visible to the caller, newest first. Admins
// see every row; regular users only rows for their own services.
func (s *LogService) List(ctx context.Context, userID string, isAdmin bool, opts ListLogsOptions) ([]models.NotificationLog, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.NotificationLog{})
	if !isAdmin {
		query = query.Where(
			"service_id IN (?)",
			s.db.Model(&models.Service{}).Select("id").Where("user_id = ?", userID),
		)
	}
	if opts.ServiceID != "" {
		query = query.Where("service_id = ?", opts.ServiceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("log service: count logs: %w", err)
	}

	var logs []models.NotificationLog
	if err := query.
		Order("sent_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("log service: list logs: %w", err)
	}

	return logs, total, nil
}
