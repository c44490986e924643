package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus enumerates lifecycle states for a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Booking is a student's intent to occupy a room in a hostel for a date range.
// HostelRef and RoomRef keep the caller's reference verbatim; the canonical ids
// are filled when the catalog could resolve them.
type Booking struct {
	ID                 string          `db:"id" json:"id"`
	StudentID          string          `db:"student_id" json:"student_id"`
	HostelRef          string          `db:"hostel_ref" json:"hostel_ref"`
	HostelID           *string         `db:"hostel_id" json:"hostel_id,omitempty"`
	RoomRef            string          `db:"room_ref" json:"room_ref"`
	RoomID             *string         `db:"room_id" json:"room_id,omitempty"`
	StartDate          time.Time       `db:"start_date" json:"start_date"`
	EndDate            time.Time       `db:"end_date" json:"end_date"`
	TotalAmount        decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod      PaymentMethod   `db:"payment_method" json:"payment_method"`
	Status             BookingStatus   `db:"status" json:"status"`
	CancellationReason *string         `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// IsActiveAt reports whether the booking still blocks the student from booking again.
func (b Booking) IsActiveAt(now time.Time) bool {
	if b.Status != BookingStatusPending && b.Status != BookingStatusActive {
		return false
	}
	return !b.EndDate.Before(now)
}

// Cancellable reports whether the booking may transition to cancelled.
func (b Booking) Cancellable() bool {
	return b.Status == BookingStatusPending || b.Status == BookingStatusActive
}

// HasRoomAssignment reports whether allocation placed the student in RoomID.
// A room resolved from the booking reference alone is only a preference.
func (b Booking) HasRoomAssignment() bool {
	return b.Status == BookingStatusActive && b.RoomID != nil
}

// BookingDetail decorates a booking with display names resolved at read time.
type BookingDetail struct {
	Booking
	HostelName string `db:"hostel_name" json:"hostel_name"`
	RoomName   string `db:"room_name" json:"room_name"`
}
