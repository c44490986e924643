package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-booking-api/internal/dto"
	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
	"github.com/noah-isme/hostel-booking-api/pkg/response"
)

type bookingService interface {
	CreateBooking(ctx context.Context, studentID string, req dto.CreateBookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, requesterID, reason string) (*models.Booking, error)
	ListMyBookings(ctx context.Context, studentID string) ([]models.BookingDetail, error)
	GetBooking(ctx context.Context, bookingID string, actor *models.JWTClaims) (*models.BookingDetail, error)
}

type bookingPaymentLister interface {
	ListBookingPayments(ctx context.Context, bookingID string, actor *models.JWTClaims) ([]models.Payment, error)
}

// BookingHandler exposes the booking ledger.
type BookingHandler struct {
	service  bookingService
	payments bookingPaymentLister
}

// NewBookingHandler builds a new handler.
func NewBookingHandler(service bookingService, payments bookingPaymentLister) *BookingHandler {
	return &BookingHandler{service: service, payments: payments}
}

// Create godoc
// @Summary Reserve a hostel room
// @Description Creates a pending booking for the authenticated student
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	booking, err := h.service.CreateBooking(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, booking)
}

// ListMine godoc
// @Summary List my bookings
// @Tags Bookings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /bookings/me [get]
func (h *BookingHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bookings, err := h.service.ListMyBookings(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, nil)
}

// Get godoc
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.service.GetBooking(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Cancel godoc
// @Summary Cancel a booking
// @Description Cancels a pending or active booking. Assigned rooms are not released.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.CancelBookingRequest false "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}
	booking, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"), claims.UserID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Payments godoc
// @Summary List payments of a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/payments [get]
func (h *BookingHandler) Payments(c *gin.Context) {
	payments, err := h.payments.ListBookingPayments(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}
