package models

import "time"

// AssignmentRecord is the durable trace of a completed room allocation. Rows are
// never updated or deleted.
type AssignmentRecord struct {
	ID          string    `db:"id" json:"id"`
	HostelID    string    `db:"hostel_id" json:"hostel_id"`
	CustodianID string    `db:"custodian_id" json:"custodian_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	PaymentID   string    `db:"payment_id" json:"payment_id"`
	BookingID   string    `db:"booking_id" json:"booking_id"`
	RoomNumber  string    `db:"room_number" json:"room_number"`
	RoomType    string    `db:"room_type" json:"room_type"`
	AccessCode  string    `db:"access_code" json:"access_code"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
}

// Allocation groups the entities touched by a successful room assignment.
type Allocation struct {
	Room       Room             `json:"room"`
	Payment    Payment          `json:"payment"`
	Booking    Booking          `json:"booking"`
	Assignment AssignmentRecord `json:"assignment"`
}
