package dto

import "github.com/shopspring/decimal"

// SubmitPaymentRequest is a student's payment submission for a booking.
type SubmitPaymentRequest struct {
	BookingID     string          `json:"booking_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required"`
}

// AssignRoomRequest selects the room an approved payment is allocated to.
type AssignRoomRequest struct {
	RoomID string `json:"room_id" validate:"required"`
}
