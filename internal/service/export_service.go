package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/export"
)

type hostelReportSource interface {
	HostelReport(ctx context.Context, hostelID string, actor *models.JWTClaims) (*models.HostelReport, error)
}

// ExportResult is a rendered document ready to stream to the client.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders hostel analytics as downloadable documents.
type ExportService struct {
	source    hostelReportSource
	renderers map[string]export.Renderer
	logger    *zap.Logger
}

// NewExportService wires the available renderers keyed by format name.
func NewExportService(source hostelReportSource, logger *zap.Logger, renderers ...export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	byFormat := make(map[string]export.Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Extension()] = r
	}
	return &ExportService{source: source, renderers: byFormat, logger: logger}
}

// ExportHostelSummary renders the hostel summary and per-room table in format.
func (s *ExportService) ExportHostelSummary(ctx context.Context, hostelID string, actor *models.JWTClaims, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	report, err := s.source.HostelReport(ctx, hostelID, actor)
	if err != nil {
		return nil, err
	}

	body, err := renderer.Render(buildHostelDocument(report))
	if err != nil {
		s.logger.Error("render hostel export", zap.String("hostel_id", hostelID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("hostel-%s-%s.%s", hostelID, report.Summary.GeneratedAt.Format("20060102"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func buildHostelDocument(report *models.HostelReport) export.Report {
	summary := report.Summary
	doc := export.Report{
		Title: "Hostel summary",
		Fields: []export.Field{
			{Label: "Hostel", Value: summary.HostelID},
			{Label: "Generated at", Value: summary.GeneratedAt.Format(time.RFC3339)},
			{Label: "Total revenue", Value: summary.TotalRevenue.StringFixed(2)},
			{Label: "Monthly revenue", Value: summary.MonthlyRevenue.StringFixed(2)},
			{Label: "Occupancy rate", Value: strconv.FormatFloat(summary.OccupancyRate*100, 'f', 1, 64) + "%"},
			{Label: "Occupied rooms", Value: fmt.Sprintf("%d/%d", summary.OccupiedRooms, summary.TotalRooms)},
			{Label: "Active bookings", Value: strconv.Itoa(summary.ActiveBookings)},
		},
		Headers: []string{"Room", "Capacity", "Occupants", "Status"},
	}
	for _, room := range report.Rooms {
		doc.Rows = append(doc.Rows, []string{
			room.RoomNumber,
			strconv.Itoa(room.Capacity),
			strconv.Itoa(room.CurrentOccupants),
			string(room.Status),
		})
	}
	return doc
}
