package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
)

// AllocationPlan inspects the locked payment, room and booking, mutates them
// in place and returns the assignment record to insert. Returning an error
// aborts the allocation and rolls everything back.
type AllocationPlan func(payment *models.Payment, room *models.Room, booking *models.Booking) (*models.AssignmentRecord, error)

// AllocationRepository runs room allocation as a single database transaction
// spanning payments, rooms, bookings and room_assignments.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// Allocate locks the payment row then the room row then the booking row,
// applies plan and writes every change with conditional updates before
// committing.
func (r *AllocationRepository) Allocate(ctx context.Context, paymentID, roomID string, plan AllocationPlan) (result *models.Allocation, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin allocation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var payment models.Payment
	if err = tx.GetContext(ctx, &payment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, paymentID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrPaymentNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}
	var room models.Room
	if err = tx.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, roomID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrRoomNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}
	var booking models.Booking
	if err = tx.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, payment.BookingID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrBookingNotFound
			return nil, err
		}
		return nil, fmt.Errorf("lock booking: %w", err)
	}

	prevPaymentStatus := payment.Status
	record, err := plan(&payment, &room, &booking)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	room.Refresh()
	room.UpdatedAt = now
	if err = updateRoomState(ctx, tx, &room); err != nil {
		return nil, err
	}

	payment.UpdatedAt = now
	if err = execOne(ctx, tx, `UPDATE payments SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		payment.ID, payment.Status, now, prevPaymentStatus); err != nil {
		return nil, fmt.Errorf("complete payment: %w", err)
	}

	booking.UpdatedAt = now
	if err = execOne(ctx, tx, `UPDATE bookings SET status = $2, room_id = $3, updated_at = $4 WHERE id = $1 AND status IN ('pending', 'active')`,
		booking.ID, booking.Status, booking.RoomID, now); err != nil {
		return nil, fmt.Errorf("activate booking: %w", err)
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.AssignedAt.IsZero() {
		record.AssignedAt = now
	}
	const insertRecord = `INSERT INTO room_assignments (id, hostel_id, custodian_id, student_id, room_id, payment_id, booking_id,
	room_number, room_type, access_code, assigned_at)
	VALUES (:id, :hostel_id, :custodian_id, :student_id, :room_id, :payment_id, :booking_id,
	:room_number, :room_type, :access_code, :assigned_at)`
	if _, err = tx.NamedExecContext(ctx, insertRecord, record); err != nil {
		if isUniqueViolation(err) {
			err = ErrUniqueViolation
			return nil, err
		}
		return nil, fmt.Errorf("insert assignment record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit allocation: %w", err)
	}
	return &models.Allocation{Room: room, Payment: payment, Booking: booking, Assignment: *record}, nil
}

func execOne(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) error {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrStaleWrite
	}
	return nil
}

// ListByRoom returns the assignment history of a room, newest first.
func (r *AllocationRepository) ListByRoom(ctx context.Context, roomID string) ([]models.AssignmentRecord, error) {
	const query = `SELECT id, hostel_id, custodian_id, student_id, room_id, payment_id, booking_id, room_number, room_type,
	access_code, assigned_at FROM room_assignments WHERE room_id = $1 ORDER BY assigned_at DESC`
	var records []models.AssignmentRecord
	if err := r.db.SelectContext(ctx, &records, query, roomID); err != nil {
		return nil, fmt.Errorf("list room assignments: %w", err)
	}
	return records, nil
}

// CountByRoomSince counts assignments of a room made after since; a nil since counts all.
func (r *AllocationRepository) CountByRoomSince(ctx context.Context, roomID string, since *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM room_assignments WHERE room_id = $1`
	args := []interface{}{roomID}
	if since != nil {
		query += ` AND assigned_at > $2`
		args = append(args, *since)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count room assignments: %w", err)
	}
	return total, nil
}
