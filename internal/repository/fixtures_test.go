package repository

import (
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

var (
	roomRowColumns = []string{"id", "hostel_id", "room_number", "floor", "room_type", "price", "capacity", "current_occupants",
		"status", "maintenance", "assigned_students", "occupancy_reset_at", "created_at", "updated_at"}
	bookingRowColumns = []string{"id", "student_id", "hostel_ref", "hostel_id", "room_ref", "room_id", "start_date", "end_date",
		"total_amount", "payment_method", "status", "cancellation_reason", "cancelled_at", "created_at", "updated_at"}
	paymentRowColumns = []string{"id", "booking_id", "student_id", "hostel_id", "amount", "payment_method", "transaction_id",
		"status", "reviewed_by", "reviewed_at", "created_at", "updated_at"}
)

func roomRow(id string, capacity, occupants int, students string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(roomRowColumns).
		AddRow(id, "hostel-1", "A101", 1, "shared", "250.00", capacity, occupants, "Available", false, students, nil, now, now)
}

func bookingRow(id, studentID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingRowColumns).
		AddRow(id, studentID, "Sunrise Hostel", "hostel-1", "A101", nil, now, now.AddDate(0, 4, 0),
			"1200.00", "MobileMoney", status, nil, nil, now, now)
}

func paymentRow(id, bookingID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(paymentRowColumns).
		AddRow(id, bookingID, "student-1", "hostel-1", "1200.00", "MobileMoney", "TXN-1", status, nil, nil, now, now)
}
