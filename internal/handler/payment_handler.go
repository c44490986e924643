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

type paymentService interface {
	SubmitPayment(ctx context.Context, studentID string, req dto.SubmitPaymentRequest) (*models.Payment, error)
	ApprovePayment(ctx context.Context, paymentID, custodianID string) (*models.Payment, error)
	RejectPayment(ctx context.Context, paymentID, custodianID string) (*models.Payment, error)
	ListHostelPayments(ctx context.Context, hostelID, custodianID, status string) ([]models.Payment, error)
}

type allocationService interface {
	AssignRoom(ctx context.Context, paymentID, roomID, custodianID string) (*models.Allocation, error)
}

// PaymentHandler exposes payment verification and room assignment endpoints.
type PaymentHandler struct {
	payments    paymentService
	allocations allocationService
}

// NewPaymentHandler builds a new handler.
func NewPaymentHandler(payments paymentService, allocations allocationService) *PaymentHandler {
	return &PaymentHandler{payments: payments, allocations: allocations}
}

// Submit godoc
// @Summary Submit a payment for a booking
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.SubmitPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}
	payment, err := h.payments.SubmitPayment(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Approve godoc
// @Summary Approve a pending payment
// @Description Marks the payment Approved. Room assignment is a separate step.
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{id}/approve [post]
func (h *PaymentHandler) Approve(c *gin.Context) {
	h.review(c, h.payments.ApprovePayment)
}

// Reject godoc
// @Summary Reject a pending payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{id}/reject [post]
func (h *PaymentHandler) Reject(c *gin.Context) {
	h.review(c, h.payments.RejectPayment)
}

func (h *PaymentHandler) review(c *gin.Context, decide func(ctx context.Context, paymentID, custodianID string) (*models.Payment, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payment, err := decide(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Assign godoc
// @Summary Assign a room to an approved payment
// @Description Allocates one slot of the room to the payment's student and completes the payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body dto.AssignRoomRequest true "Room selection"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments/{id}/assign [post]
func (h *PaymentHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AssignRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	if req.RoomID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "room_id is required"))
		return
	}
	allocation, err := h.allocations.AssignRoom(c.Request.Context(), c.Param("id"), req.RoomID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// ListHostel godoc
// @Summary List a hostel's payments
// @Tags Payments
// @Produce json
// @Param id path string true "Hostel ID"
// @Param status query string false "Payment status filter"
// @Success 200 {object} response.Envelope
// @Router /hostels/{id}/payments [get]
func (h *PaymentHandler) ListHostel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	payments, err := h.payments.ListHostelPayments(c.Request.Context(), c.Param("id"), claims.UserID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}
