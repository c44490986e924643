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

const bookingColumns = `id, student_id, hostel_ref, hostel_id, room_ref, room_id, start_date, end_date, total_amount,
	payment_method, status, cancellation_reason, cancelled_at, created_at, updated_at`

// BookingRepository persists the booking ledger.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateExclusive inserts the booking unless the student already holds an
// active one. The check and insert are serialised per student with a
// transaction-scoped advisory lock.
func (r *BookingRepository) CreateExclusive(ctx context.Context, booking *models.Booking, now time.Time) (err error) {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.BookingStatusPending
	}
	booking.CreatedAt = now
	booking.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, booking.StudentID); err != nil {
		return fmt.Errorf("lock student bookings: %w", err)
	}

	var exists int
	const existsQuery = `SELECT 1 FROM bookings WHERE student_id = $1 AND status IN ('pending', 'active') AND end_date >= $2 LIMIT 1`
	err = tx.GetContext(ctx, &exists, existsQuery, booking.StudentID, now)
	switch {
	case err == nil:
		err = ErrActiveBookingExists
		return err
	case err != sql.ErrNoRows:
		return fmt.Errorf("check active booking: %w", err)
	}

	const insertQuery = `INSERT INTO bookings (` + bookingColumns + `)
	VALUES (:id, :student_id, :hostel_ref, :hostel_id, :room_ref, :room_id, :start_date, :end_date, :total_amount,
	:payment_method, :status, :cancellation_reason, :cancelled_at, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// FindByID returns a booking by identifier.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find booking: %w", err)
	}
	return &booking, nil
}

// bookingDetailQuery falls back to the stored references when the ids were
// unknown at booking time, so hostels registered later still resolve.
const bookingDetailQuery = `SELECT b.id, b.student_id, b.hostel_ref, COALESCE(b.hostel_id, h.id) AS hostel_id, b.room_ref, b.room_id,
	b.start_date, b.end_date, b.total_amount, b.payment_method, b.status, b.cancellation_reason, b.cancelled_at,
	b.created_at, b.updated_at,
	COALESCE(h.name, b.hostel_ref) AS hostel_name,
	COALESCE(r.room_number, b.room_ref) AS room_name
	FROM bookings b
	LEFT JOIN LATERAL (
		SELECT hh.id, hh.name FROM hostels hh
		WHERE hh.id = b.hostel_id
			OR (b.hostel_id IS NULL AND (hh.id::text = b.hostel_ref OR LOWER(hh.name) = LOWER(b.hostel_ref)))
		ORDER BY (hh.id::text = b.hostel_ref) DESC LIMIT 1
	) h ON TRUE
	LEFT JOIN LATERAL (
		SELECT rr.room_number FROM rooms rr
		WHERE rr.id = b.room_id
			OR (b.room_id IS NULL AND rr.hostel_id = h.id AND (rr.id::text = b.room_ref OR rr.room_number = b.room_ref))
		ORDER BY (rr.id::text = b.room_ref) DESC LIMIT 1
	) r ON TRUE`

// FindDetailByID returns a booking enriched with catalog display names.
func (r *BookingRepository) FindDetailByID(ctx context.Context, id string) (*models.BookingDetail, error) {
	var detail models.BookingDetail
	if err := r.db.GetContext(ctx, &detail, bookingDetailQuery+` WHERE b.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find booking detail: %w", err)
	}
	return &detail, nil
}

// ListByStudent returns the student's bookings newest first.
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID string) ([]models.BookingDetail, error) {
	var bookings []models.BookingDetail
	query := bookingDetailQuery + ` WHERE b.student_id = $1 ORDER BY b.created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, studentID); err != nil {
		return nil, fmt.Errorf("list student bookings: %w", err)
	}
	return bookings, nil
}

// Cancel transitions a pending or active booking to cancelled. It returns
// sql.ErrNoRows when the booking is missing or no longer cancellable.
func (r *BookingRepository) Cancel(ctx context.Context, id, reason string, at time.Time) error {
	const query = `UPDATE bookings SET status = 'cancelled', cancellation_reason = $2, cancelled_at = $3, updated_at = $3
	WHERE id = $1 AND status IN ('pending', 'active')`
	var reasonArg *string
	if reason != "" {
		reasonArg = &reason
	}
	result, err := r.db.ExecContext(ctx, query, id, reasonArg, at)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check booking cancel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
