package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

// AnalyticsRepository describes the ledger reads the summary is computed from.
type AnalyticsRepository interface {
	Rooms(ctx context.Context, hostelID string) ([]models.RoomOccupancy, error)
	Revenue(ctx context.Context, hostelID string) ([]repository.RevenueEntry, error)
	Bookings(ctx context.Context, hostelID string) ([]repository.BookingSpan, error)
}

type analyticsCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

// AnalyticsInvalidator drops cached figures after ledger mutations.
type AnalyticsInvalidator interface {
	InvalidateHostel(ctx context.Context, hostelID string)
}

type noopInvalidator struct{}

func (noopInvalidator) InvalidateHostel(context.Context, string) {}

// AnalyticsService computes per-hostel revenue and occupancy figures behind a
// read-through cache. The cache is never authoritative.
type AnalyticsService struct {
	repo   AnalyticsRepository
	cache  analyticsCache
	access *HostelAccess
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyticsService constructs an analytics service. cache may be nil.
func NewAnalyticsService(repo AnalyticsRepository, cache analyticsCache, access *HostelAccess, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{repo: repo, cache: cache, access: access, logger: logger, now: time.Now}
}

func reportCacheKey(hostelID string) string {
	return fmt.Sprintf("analytics:report:%s", hostelID)
}

// HostelSummary returns the summary for a hostel the actor may view. The
// boolean reports whether the figures came from cache.
func (s *AnalyticsService) HostelSummary(ctx context.Context, hostelID string, actor *models.JWTClaims) (*models.HostelSummary, bool, error) {
	if _, err := s.access.Authorize(ctx, hostelID, actor); err != nil {
		return nil, false, err
	}
	report, hit, err := s.report(ctx, hostelID)
	if err != nil {
		return nil, false, err
	}
	return &report.Summary, hit, nil
}

// HostelReport returns the summary plus per-room occupancy rows.
func (s *AnalyticsService) HostelReport(ctx context.Context, hostelID string, actor *models.JWTClaims) (*models.HostelReport, error) {
	if _, err := s.access.Authorize(ctx, hostelID, actor); err != nil {
		return nil, err
	}
	report, _, err := s.report(ctx, hostelID)
	return report, err
}

func (s *AnalyticsService) report(ctx context.Context, hostelID string) (*models.HostelReport, bool, error) {
	key := reportCacheKey(hostelID)
	if s.cache != nil {
		var cached models.HostelReport
		if s.cache.Get(ctx, key, &cached) {
			return &cached, true, nil
		}
	}

	rooms, err := s.repo.Rooms(ctx, hostelID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	revenue, err := s.repo.Revenue(ctx, hostelID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revenue")
	}
	bookings, err := s.repo.Bookings(ctx, hostelID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}

	if rooms == nil {
		rooms = []models.RoomOccupancy{}
	}
	report := &models.HostelReport{
		Summary: ComputeHostelSummary(hostelID, rooms, revenue, bookings, s.now().UTC()),
		Rooms:   rooms,
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, report, 0)
	}
	return report, false, nil
}

// InvalidateHostel drops every cached analytics entry of the hostel.
func (s *AnalyticsService) InvalidateHostel(ctx context.Context, hostelID string) {
	if s == nil || s.cache == nil || hostelID == "" {
		return
	}
	s.cache.Invalidate(ctx, fmt.Sprintf("analytics:*:%s", hostelID))
}

// ComputeHostelSummary derives the hostel figures from ledger rows. Revenue
// counts Approved and Completed payments; monthly revenue is restricted to the
// calendar month of now in UTC. A room is occupied when it has at least one
// occupant. Bookings are active when not cancelled and ending after now.
func ComputeHostelSummary(hostelID string, rooms []models.RoomOccupancy, revenue []repository.RevenueEntry, bookings []repository.BookingSpan, now time.Time) models.HostelSummary {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextMonth := monthStart.AddDate(0, 1, 0)

	total := decimal.Zero
	monthly := decimal.Zero
	for _, entry := range revenue {
		total = total.Add(entry.Amount)
		created := entry.CreatedAt.UTC()
		if !created.Before(monthStart) && created.Before(nextMonth) {
			monthly = monthly.Add(entry.Amount)
		}
	}

	occupied := 0
	for _, room := range rooms {
		if room.CurrentOccupants > 0 {
			occupied++
		}
	}
	rate := 0.0
	if len(rooms) > 0 {
		rate = float64(occupied) / float64(len(rooms))
	}

	active := 0
	for _, b := range bookings {
		if b.Status != models.BookingStatusCancelled && b.EndDate.After(now) {
			active++
		}
	}

	return models.HostelSummary{
		HostelID:       hostelID,
		TotalRevenue:   total,
		MonthlyRevenue: monthly,
		OccupancyRate:  rate,
		OccupiedRooms:  occupied,
		TotalRooms:     len(rooms),
		ActiveBookings: active,
		GeneratedAt:    now,
	}
}
