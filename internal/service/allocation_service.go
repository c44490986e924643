package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/lock"
)

type allocationStore interface {
	Allocate(ctx context.Context, paymentID, roomID string, plan repository.AllocationPlan) (*models.Allocation, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.AssignmentRecord, error)
}

type paymentReader interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// AllocationService assigns rooms to students whose payment was approved.
type AllocationService struct {
	repo      allocationStore
	payments  paymentReader
	rooms     roomReader
	access    *HostelAccess
	analytics AnalyticsInvalidator
	notifier  Notifier
	metrics   *MetricsService
	locks     *lock.Keyed
	logger    *zap.Logger
	now       func() time.Time
}

// AllocationServiceDeps groups collaborators of AllocationService.
type AllocationServiceDeps struct {
	Repo      allocationStore
	Payments  paymentReader
	Rooms     roomReader
	Access    *HostelAccess
	Analytics AnalyticsInvalidator
	Notifier  Notifier
	Metrics   *MetricsService
	Locks     *lock.Keyed
	Logger    *zap.Logger
}

// NewAllocationService constructs the service.
func NewAllocationService(deps AllocationServiceDeps) *AllocationService {
	s := &AllocationService{
		repo:      deps.Repo,
		payments:  deps.Payments,
		rooms:     deps.Rooms,
		access:    deps.Access,
		analytics: deps.Analytics,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		locks:     deps.Locks,
		logger:    deps.Logger,
		now:       time.Now,
	}
	if s.analytics == nil {
		s.analytics = noopInvalidator{}
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.locks == nil {
		s.locks = lock.NewKeyed()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// AssignRoom places the student behind an approved payment into roomID. The
// occupancy increment, payment completion, booking activation and assignment
// record either all happen or none do.
func (s *AllocationService) AssignRoom(ctx context.Context, paymentID, roomID, custodianID string) (*models.Allocation, error) {
	started := s.now()
	allocation, hostel, err := s.assign(ctx, paymentID, roomID, custodianID)
	s.metrics.RecordAllocation(outcomeOf(err), s.now().Sub(started))
	if err != nil {
		s.logger.Warn("room assignment rejected",
			zap.String("payment_id", paymentID),
			zap.String("room_id", roomID),
			zap.Error(err))
		return nil, err
	}

	assignment := allocation.Assignment
	s.logger.Info("room assigned",
		zap.String("payment_id", assignment.PaymentID),
		zap.String("room_id", assignment.RoomID),
		zap.String("student_id", assignment.StudentID),
		zap.Int("occupants", allocation.Room.CurrentOccupants))

	s.notifier.Notify(ctx, models.NotificationEvent{
		RecipientID: assignment.StudentID,
		Type:        models.NotificationRoomAssignment,
		Title:       "Room assigned",
		Message:     fmt.Sprintf("You have been assigned room %s at %s.", assignment.RoomNumber, hostel.Name),
		Data: map[string]string{
			"roomNumber": assignment.RoomNumber,
			"accessCode": assignment.AccessCode,
			"hostelName": hostel.Name,
		},
	})
	s.analytics.InvalidateHostel(ctx, assignment.HostelID)
	return allocation, nil
}

func (s *AllocationService) assign(ctx context.Context, paymentID, roomID, custodianID string) (*models.Allocation, *models.Hostel, error) {
	unlock := s.locks.Lock("payment:"+paymentID, "room:"+roomID)
	defer unlock()

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	hostel, err := s.access.RequireCustodian(ctx, payment.HostelID, custodianID)
	if err != nil {
		return nil, nil, err
	}

	plan := func(p *models.Payment, room *models.Room, booking *models.Booking) (*models.AssignmentRecord, error) {
		if p.HostelID != hostel.ID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another hostel")
		}
		if p.Status != models.PaymentStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("payment is %s, expected %s", p.Status, models.PaymentStatusApproved))
		}
		if room.HostelID != p.HostelID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "room does not belong to the payment's hostel")
		}
		if room.Maintenance {
			return nil, appErrors.Clone(appErrors.ErrCapacity, "room is under maintenance")
		}
		if !room.HasVacancy() {
			return nil, appErrors.Clone(appErrors.ErrCapacity, fmt.Sprintf("room %s is full", room.RoomNumber))
		}
		if booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusActive {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("booking is %s", booking.Status))
		}
		if room.HasStudent(p.StudentID) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already assigned to this room")
		}

		now := s.now().UTC()
		room.CurrentOccupants++
		room.AssignedStudents = append(room.AssignedStudents, p.StudentID)
		p.Status = models.PaymentStatusCompleted
		booking.Status = models.BookingStatusActive
		booking.RoomID = &room.ID
		return &models.AssignmentRecord{
			HostelID:    hostel.ID,
			CustodianID: custodianID,
			StudentID:   p.StudentID,
			RoomID:      room.ID,
			PaymentID:   p.ID,
			BookingID:   booking.ID,
			RoomNumber:  room.RoomNumber,
			RoomType:    room.RoomType,
			AccessCode:  accessCode(room.RoomNumber, now),
			AssignedAt:  now,
		}, nil
	}

	allocation, err := s.repo.Allocate(ctx, paymentID, roomID, plan)
	if err != nil {
		return nil, nil, mapAllocationError(err)
	}
	return allocation, hostel, nil
}

func mapAllocationError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, repository.ErrPaymentNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	case errors.Is(err, repository.ErrRoomNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "room not found")
	case errors.Is(err, repository.ErrBookingNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	case errors.Is(err, repository.ErrStaleWrite):
		return appErrors.Clone(appErrors.ErrInvalidState, "allocation lost a concurrent update")
	case errors.Is(err, repository.ErrUniqueViolation):
		return appErrors.Clone(appErrors.ErrConflict, "payment has already been allocated")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign room")
}

// accessCode derives the door code handed to the student.
func accessCode(roomNumber string, at time.Time) string {
	return fmt.Sprintf("%s-%06d", roomNumber, at.UnixMilli()%1000000)
}

// ListRoomAssignments returns the immutable assignment trail of a room.
func (s *AllocationService) ListRoomAssignments(ctx context.Context, roomID, custodianID string) ([]models.AssignmentRecord, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if _, err := s.access.RequireCustodian(ctx, room.HostelID, custodianID); err != nil {
		return nil, err
	}
	records, err := s.repo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room assignments")
	}
	if records == nil {
		records = []models.AssignmentRecord{}
	}
	return records, nil
}
