package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type roomService interface {
	CreateRoom(ctx context.Context, custodianID string, req dto.CreateRoomRequest) (*models.Room, error)
	GetRoom(ctx context.Context, roomID string, actor *models.JWTClaims) (*models.Room, error)
	ListHostelRooms(ctx context.Context, hostelID, status string, actor *models.JWTClaims) ([]models.Room, error)
	ForceRoomStatus(ctx context.Context, roomID, custodianID, status string) (*models.Room, error)
	CheckOccupancy(ctx context.Context, roomID, custodianID string) (*models.OccupancyCheck, error)
}

type assignmentLister interface {
	ListRoomAssignments(ctx context.Context, roomID, custodianID string) ([]models.AssignmentRecord, error)
}

// RoomHandler exposes the room registry.
type RoomHandler struct {
	rooms       roomService
	assignments assignmentLister
}

// NewRoomHandler builds a new handler.
func NewRoomHandler(rooms roomService, assignments assignmentLister) *RoomHandler {
	return &RoomHandler{rooms: rooms, assignments: assignments}
}

// Create godoc
// @Summary Register a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body dto.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room payload"))
		return
	}
	room, err := h.rooms.CreateRoom(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Get godoc
// @Summary Get a room
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// ListHostel godoc
// @Summary List a hostel's rooms
// @Tags Rooms
// @Produce json
// @Param id path string true "Hostel ID"
// @Param status query string false "Available, PartiallyBooked, Booked or Maintenance"
// @Success 200 {object} response.Envelope
// @Router /hostels/{id}/rooms [get]
func (h *RoomHandler) ListHostel(c *gin.Context) {
	rooms, err := h.rooms.ListHostelRooms(c.Request.Context(), c.Param("id"), c.Query("status"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// ForceStatus godoc
// @Summary Override a room's status
// @Description Maintenance keeps occupants, Available clears them, other states must match occupancy
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body dto.ForceRoomStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rooms/{id}/status [put]
func (h *RoomHandler) ForceStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ForceRoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	room, err := h.rooms.ForceRoomStatus(c.Request.Context(), c.Param("id"), claims.UserID, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// CheckOccupancy godoc
// @Summary Compare a room's occupancy with its assignment history
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/occupancy-check [get]
func (h *RoomHandler) CheckOccupancy(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	check, err := h.rooms.CheckOccupancy(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Assignments godoc
// @Summary List a room's assignment records
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/assignments [get]
func (h *RoomHandler) Assignments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	records, err := h.assignments.ListRoomAssignments(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
