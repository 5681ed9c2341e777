package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"github.com/renewhub/renewhub/internal/expiry"
	"github.com/renewhub/renewhub/internal/models"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
)

// Report formats accepted by Export.
const (
	ReportFormatCSV   = "csv"
	ReportFormatExcel = "excel"
)

// ErrUnknownReportFormat rejects export formats other than csv and excel.
var ErrUnknownReportFormat = apperrors.New("REPORT_FORMAT_UNKNOWN", "Report format must be csv or excel", http.StatusBadRequest)

// Report bundles an export payload with its download metadata.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

var reportColumns = []string{
	"Name", "Provider", "Category", "Expiry Date", "Days Left", "Status",
	"Cost", "Contact Name", "Contact Email", "Notes",
}

// ReportService renders the service inventory as downloadable reports.
type ReportService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReportService constructs a ReportService instance.
func NewReportService(db *gorm.DB) (*ReportService, error) {
	if db == nil {
		return nil, errors.New("report service: db is required")
	}
	return &ReportService{db: db, now: time.Now}, nil
}

// WithClock overrides the time source. Intended for tests.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	if now != nil {
		s.now = now
	}
	return s
}

// Export renders the services visible to the caller in the requested format.
// A non-empty categoryID narrows the report to that category.
func (s *ReportService) Export(ctx context.Context, userID string, isAdmin bool, format, categoryID string) (*Report, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Service{})
	if !isAdmin {
		query = query.Where("user_id = ?", userID)
	}
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var rows []models.Service
	if err := query.Order("expiry_date ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("report service: load services: %w", err)
	}

	now := s.now()
	stamp := now.UTC().Format("2006-01-02")

	switch format {
	case ReportFormatCSV:
		data, err := s.renderCSV(rows, now)
		if err != nil {
			return nil, err
		}
		return &Report{
			Filename:    fmt.Sprintf("services-report-%s.csv", stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case ReportFormatExcel:
		data, err := s.renderExcel(rows, now)
		if err != nil {
			return nil, err
		}
		return &Report{
			Filename:    fmt.Sprintf("services-report-%s.xlsx", stamp),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, ErrUnknownReportFormat
	}
}

func (s *ReportService) renderCSV(rows []models.Service, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(reportColumns); err != nil {
		return nil, fmt.Errorf("report service: write csv header: %w", err)
	}
	for i := range rows {
		if err := writer.Write(reportRow(&rows[i], now)); err != nil {
			return nil, fmt.Errorf("report service: write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("report service: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ReportService) renderExcel(rows []models.Service, now time.Time) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Services")
	if err != nil {
		return nil, fmt.Errorf("report service: add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, col := range reportColumns {
		header.AddCell().SetString(col)
	}

	for i := range rows {
		row := sheet.AddRow()
		for _, value := range reportRow(&rows[i], now) {
			row.AddCell().SetString(value)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("report service: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func reportRow(svc *models.Service, now time.Time) []string {
	snap, _ := expiry.ComputeStatus(svc.ExpiryDate, svc.StoredStatus, now)

	daysLeft := "N/A"
	if snap.DaysLeft != nil {
		daysLeft = strconv.Itoa(*snap.DaysLeft)
	}

	expiryDate := svc.ExpiryDate
	if expiryDate == "" {
		expiryDate = "Never"
	}

	category := svc.CategoryName
	if category == "" {
		category = "Uncategorized"
	}

	return []string{
		svc.Name,
		svc.Provider,
		category,
		expiryDate,
		daysLeft,
		string(snap.Status),
		strconv.FormatFloat(svc.Cost, 'f', 2, 64),
		svc.ContactName,
		svc.ContactEmail,
		svc.Notes,
	}
}
