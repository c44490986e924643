package dto

import "github.com/shopspring/decimal"

// CreateBookingRequest is the payload for reserving a room. Dates accept
// YYYY-MM-DD or RFC3339.
type CreateBookingRequest struct {
	HostelRef     string          `json:"hostel_ref" validate:"required"`
	RoomRef       string          `json:"room_ref" validate:"required"`
	StartDate     string          `json:"start_date" validate:"required"`
	EndDate       string          `json:"end_date" validate:"required"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
}

// CancelBookingRequest carries an optional cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
