package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/lock"
)

type bookingStore interface {
	CreateExclusive(ctx context.Context, booking *models.Booking, now time.Time) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	FindDetailByID(ctx context.Context, id string) (*models.BookingDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.BookingDetail, error)
	Cancel(ctx context.Context, id, reason string, at time.Time) error
}

type catalogResolver interface {
	Resolve(ctx context.Context, ref string) (*models.Hostel, error)
	ResolveRoom(ctx context.Context, hostelID, ref string) (*models.Room, error)
}

// BookingService maintains the booking ledger.
type BookingService struct {
	repo      bookingStore
	catalog   catalogResolver
	access    *HostelAccess
	analytics AnalyticsInvalidator
	locks     *lock.Keyed
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs the service.
func NewBookingService(repo bookingStore, catalog catalogResolver, access *HostelAccess, analytics AnalyticsInvalidator, locks *lock.Keyed, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = lock.NewKeyed()
	}
	if analytics == nil {
		analytics = noopInvalidator{}
	}
	return &BookingService{
		repo:      repo,
		catalog:   catalog,
		access:    access,
		analytics: analytics,
		locks:     locks,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateBooking records a pending booking for the student. A student holds at
// most one pending or active booking that has not yet ended.
func (s *BookingService) CreateBooking(ctx context.Context, studentID string, req dto.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	hostelRef := strings.TrimSpace(req.HostelRef)
	roomRef := strings.TrimSpace(req.RoomRef)
	if studentID == "" || hostelRef == "" || roomRef == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student, hostel and room references are required")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD or RFC3339")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD or RFC3339")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be after start_date")
	}
	now := s.now().UTC()
	if startOfDay(start).Before(startOfDay(now)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date cannot be in the past")
	}
	if !req.TotalAmount.IsPositive() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "total_amount must be greater than zero")
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported payment method")
	}

	booking := &models.Booking{
		StudentID:     studentID,
		HostelRef:     hostelRef,
		RoomRef:       roomRef,
		StartDate:     start,
		EndDate:       end,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: method,
		Status:        models.BookingStatusPending,
	}
	if err := s.resolveRefs(ctx, booking); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("student:" + studentID)
	defer unlock()

	if err := s.repo.CreateExclusive(ctx, booking, now); err != nil {
		if errors.Is(err, repository.ErrActiveBookingExists) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an active booking")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	if booking.HostelID != nil {
		s.analytics.InvalidateHostel(ctx, *booking.HostelID)
	}
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("student_id", studentID),
		zap.Bool("hostel_resolved", booking.HostelID != nil))
	return booking, nil
}

// resolveRefs fills canonical ids when the catalog knows the references.
// Unknown references are kept verbatim.
func (s *BookingService) resolveRefs(ctx context.Context, booking *models.Booking) error {
	hostel, err := s.catalog.Resolve(ctx, booking.HostelRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve hostel")
	}
	booking.HostelID = &hostel.ID
	room, err := s.catalog.ResolveRoom(ctx, hostel.ID, booking.RoomRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve room")
	}
	booking.RoomID = &room.ID
	return nil
}

// CancelBooking cancels a pending or active booking owned by requesterID.
// Assigned rooms are not released.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, requesterID, reason string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.StudentID != requesterID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another student")
	}
	if !booking.Cancellable() {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "booking can no longer be cancelled")
	}

	assigned := booking.HasRoomAssignment()
	at := s.now().UTC()
	reason = strings.TrimSpace(reason)
	if err := s.repo.Cancel(ctx, bookingID, reason, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "booking can no longer be cancelled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancelledAt = &at
	booking.UpdatedAt = at
	if reason != "" {
		booking.CancellationReason = &reason
	}
	if booking.HostelID != nil {
		s.analytics.InvalidateHostel(ctx, *booking.HostelID)
	}
	if assigned {
		s.logger.Warn("cancelled booking keeps its room assignment",
			zap.String("booking_id", booking.ID),
			zap.String("room_id", *booking.RoomID))
	}
	return booking, nil
}

// ListMyBookings returns the student's bookings newest first with display names.
func (s *BookingService) ListMyBookings(ctx context.Context, studentID string) ([]models.BookingDetail, error) {
	bookings, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	if bookings == nil {
		bookings = []models.BookingDetail{}
	}
	return bookings, nil
}

// GetBooking returns a booking to its student, the hostel's custodian or an admin.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string, actor *models.JWTClaims) (*models.BookingDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	detail, err := s.repo.FindDetailByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if err := authorizeBookingViewer(ctx, s.access, &detail.Booking, actor); err != nil {
		return nil, err
	}
	return detail, nil
}

func authorizeBookingViewer(ctx context.Context, access *HostelAccess, booking *models.Booking, actor *models.JWTClaims) error {
	if actor.Role == models.RoleStudent {
		if booking.StudentID != actor.UserID {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil
	}
	if booking.HostelID == nil {
		if actor.Role == models.RoleAdmin {
			return nil
		}
		return appErrors.Clone(appErrors.ErrForbidden, "booking is not linked to a managed hostel")
	}
	_, err := access.Authorize(ctx, *booking.HostelID, actor)
	return err
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
