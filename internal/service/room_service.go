package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	"github.com/noah-isme/hostel-booking-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/lock"
)

type roomStore interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id string) (*models.Room, error)
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
	Mutate(ctx context.Context, id string, fn repository.RoomMutation) (*models.Room, error)
}

type assignmentCounter interface {
	CountByRoomSince(ctx context.Context, roomID string, since *time.Time) (int, error)
}

// RoomService manages the room registry of each hostel.
type RoomService struct {
	repo        roomStore
	assignments assignmentCounter
	access      *HostelAccess
	analytics   AnalyticsInvalidator
	locks       *lock.Keyed
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewRoomService constructs the service.
func NewRoomService(repo roomStore, assignments assignmentCounter, access *HostelAccess, analytics AnalyticsInvalidator, locks *lock.Keyed, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if analytics == nil {
		analytics = noopInvalidator{}
	}
	if locks == nil {
		locks = lock.NewKeyed()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{
		repo:        repo,
		assignments: assignments,
		access:      access,
		analytics:   analytics,
		locks:       locks,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateRoom registers an empty, available room in the custodian's hostel.
func (s *RoomService) CreateRoom(ctx context.Context, custodianID string, req dto.CreateRoomRequest) (*models.Room, error) {
	req.RoomNumber = strings.TrimSpace(req.RoomNumber)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	if req.Price.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "price cannot be negative")
	}
	if _, err := s.access.RequireCustodian(ctx, req.HostelID, custodianID); err != nil {
		return nil, err
	}

	room := &models.Room{
		ID:         uuid.NewString(),
		HostelID:   req.HostelID,
		RoomNumber: req.RoomNumber,
		Floor:      req.Floor,
		RoomType:   strings.TrimSpace(req.RoomType),
		Price:      req.Price,
		Capacity:   req.Capacity,
	}
	if err := s.repo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room %s already exists in this hostel", room.RoomNumber))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	s.analytics.InvalidateHostel(ctx, room.HostelID)
	s.logger.Info("room created", zap.String("room_id", room.ID), zap.String("hostel_id", room.HostelID))
	return room, nil
}

// GetRoom returns a room to admins and the hostel's custodian.
func (s *RoomService) GetRoom(ctx context.Context, roomID string, actor *models.JWTClaims) (*models.Room, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.Authorize(ctx, room.HostelID, actor); err != nil {
		return nil, err
	}
	return room, nil
}

// ListHostelRooms lists a hostel's rooms, optionally filtered by status.
func (s *RoomService) ListHostelRooms(ctx context.Context, hostelID, status string, actor *models.JWTClaims) ([]models.Room, error) {
	if _, err := s.access.Authorize(ctx, hostelID, actor); err != nil {
		return nil, err
	}
	filter := models.RoomFilter{HostelID: hostelID}
	if strings.TrimSpace(status) != "" {
		parsed, ok := models.ParseRoomStatus(status)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown room status")
		}
		filter.Status = parsed
	}
	rooms, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, nil
}

// ForceRoomStatus applies an administrative status override while keeping the
// occupancy fields consistent with the declared status.
func (s *RoomService) ForceRoomStatus(ctx context.Context, roomID, custodianID, status string) (*models.Room, error) {
	target, ok := models.ParseRoomStatus(status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown room status")
	}
	current, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireCustodian(ctx, current.HostelID, custodianID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock("room:" + roomID)
	defer unlock()

	var displaced int
	room, err := s.repo.Mutate(ctx, roomID, func(room *models.Room) error {
		displaced = room.CurrentOccupants
		return applyForcedStatus(room, target, s.now().UTC())
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		case errors.Is(err, repository.ErrStaleWrite):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "room changed concurrently")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update room status")
	}

	if displaced > 0 {
		s.logger.Warn("room status forced while occupied",
			zap.String("room_id", room.ID),
			zap.String("status", string(target)),
			zap.Int("occupants", displaced),
			zap.String("custodian_id", custodianID))
	}
	s.analytics.InvalidateHostel(ctx, room.HostelID)
	return room, nil
}

func applyForcedStatus(room *models.Room, target models.RoomStatus, now time.Time) error {
	switch target {
	case models.RoomStatusMaintenance:
		room.Maintenance = true
	case models.RoomStatusAvailable:
		room.Maintenance = false
		room.CurrentOccupants = 0
		room.AssignedStudents = []string{}
		room.OccupancyResetAt = &now
	default:
		if derived := models.DeriveRoomStatus(room.Capacity, room.CurrentOccupants, false); derived != target {
			return appErrors.Clone(appErrors.ErrInvalidState,
				fmt.Sprintf("room holds %d of %d occupants and cannot be marked %s", room.CurrentOccupants, room.Capacity, target))
		}
		room.Maintenance = false
	}
	return nil
}

// CheckOccupancy compares the room's occupancy counter with the assignment
// records written since its last reset.
func (s *RoomService) CheckOccupancy(ctx context.Context, roomID, custodianID string) (*models.OccupancyCheck, error) {
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireCustodian(ctx, room.HostelID, custodianID); err != nil {
		return nil, err
	}
	expected, err := s.assignments.CountByRoomSince(ctx, room.ID, room.OccupancyResetAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count room assignments")
	}

	check := &models.OccupancyCheck{
		RoomID:            room.ID,
		CurrentOccupants:  room.CurrentOccupants,
		AssignedStudents:  len(room.AssignedStudents),
		ExpectedOccupants: expected,
		Drift:             room.CurrentOccupants - expected,
	}
	check.Consistent = check.Drift == 0 && check.AssignedStudents == room.CurrentOccupants
	if !check.Consistent {
		s.logger.Warn("room occupancy drift detected",
			zap.String("room_id", room.ID),
			zap.Int("current_occupants", room.CurrentOccupants),
			zap.Int("expected_occupants", expected),
			zap.Int("assigned_students", check.AssignedStudents))
	}
	return check, nil
}

func (s *RoomService) loadRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}
