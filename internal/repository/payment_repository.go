package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
)

const paymentColumns = `id, booking_id, student_id, hostel_id, amount, payment_method, transaction_id, status,
	reviewed_by, reviewed_at, created_at, updated_at`

// PaymentRepository persists payment submissions and their review outcome.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreateIfNoneOpen inserts the payment only when the booking has no Pending,
// Approved or Completed payment. ErrOpenPaymentExists signals the conflict.
func (r *PaymentRepository) CreateIfNoneOpen(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	const query = `INSERT INTO payments (id, booking_id, student_id, hostel_id, amount, payment_method, transaction_id, status, created_at, updated_at)
	SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $9
	WHERE NOT EXISTS (
		SELECT 1 FROM payments WHERE booking_id = $2 AND status IN ('Pending', 'Approved', 'Completed')
	)`
	result, err := r.db.ExecContext(ctx, query, payment.ID, payment.BookingID, payment.StudentID, payment.HostelID,
		payment.Amount, payment.PaymentMethod, payment.TransactionID, payment.Status, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check payment insert rows: %w", err)
	}
	if rows == 0 {
		return ErrOpenPaymentExists
	}
	return nil
}

// FindByID returns a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// List returns payments matching the filter, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT ` + paymentColumns + ` FROM payments`)
	var conditions []string
	var args []interface{}
	if filter.HostelID != "" {
		args = append(args, filter.HostelID)
		conditions = append(conditions, fmt.Sprintf("hostel_id = $%d", len(args)))
	}
	if filter.BookingID != "" {
		args = append(args, filter.BookingID)
		conditions = append(conditions, fmt.Sprintf("booking_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	var payments []models.Payment
	if err := r.db.SelectContext(ctx, &payments, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Approve moves a Pending payment to Approved provided no sibling payment of
// the same booking is already Approved or Completed. A zero-row update yields
// sql.ErrNoRows; callers re-read to classify it.
func (r *PaymentRepository) Approve(ctx context.Context, id, reviewerID string, at time.Time) error {
	const query = `UPDATE payments SET status = 'Approved', reviewed_by = $2, reviewed_at = $3, updated_at = $3
	WHERE id = $1 AND status = 'Pending'
	AND NOT EXISTS (
		SELECT 1 FROM payments sibling
		WHERE sibling.booking_id = payments.booking_id AND sibling.id <> payments.id
		AND sibling.status IN ('Approved', 'Completed')
	)`
	return r.review(ctx, query, id, reviewerID, at)
}

// Reject moves a Pending payment to Rejected.
func (r *PaymentRepository) Reject(ctx context.Context, id, reviewerID string, at time.Time) error {
	const query = `UPDATE payments SET status = 'Rejected', reviewed_by = $2, reviewed_at = $3, updated_at = $3
	WHERE id = $1 AND status = 'Pending'`
	return r.review(ctx, query, id, reviewerID, at)
}

func (r *PaymentRepository) review(ctx context.Context, query, id, reviewerID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, query, id, reviewerID, at)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("review payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check payment review rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasAccepted reports whether the booking already has an Approved or Completed payment.
func (r *PaymentRepository) HasAccepted(ctx context.Context, bookingID string) (bool, error) {
	const query = `SELECT 1 FROM payments WHERE booking_id = $1 AND status IN ('Approved', 'Completed') LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, bookingID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check accepted payment: %w", err)
	}
	return true, nil
}
