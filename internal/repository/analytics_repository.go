package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/hostel-booking-api/internal/models"
)

// RevenueEntry is a single accepted payment used for revenue figures.
type RevenueEntry struct {
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}

// BookingSpan carries the booking fields analytics needs.
type BookingSpan struct {
	Status  models.BookingStatus `db:"status"`
	EndDate time.Time            `db:"end_date"`
}

// AnalyticsRepository exposes the ledger reads the hostel summary is computed from.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Rooms returns the occupancy snapshot of every room in the hostel.
func (r *AnalyticsRepository) Rooms(ctx context.Context, hostelID string) ([]models.RoomOccupancy, error) {
	const query = `SELECT id AS room_id, room_number, capacity, current_occupants, status
	FROM rooms WHERE hostel_id = $1 ORDER BY room_number ASC`
	var rooms []models.RoomOccupancy
	if err := r.db.SelectContext(ctx, &rooms, query, hostelID); err != nil {
		return nil, fmt.Errorf("query hostel rooms: %w", err)
	}
	return rooms, nil
}

// Revenue returns Approved and Completed payments of the hostel.
func (r *AnalyticsRepository) Revenue(ctx context.Context, hostelID string) ([]RevenueEntry, error) {
	const query = `SELECT amount, created_at FROM payments WHERE hostel_id = $1 AND status IN ('Approved', 'Completed')`
	var entries []RevenueEntry
	if err := r.db.SelectContext(ctx, &entries, query, hostelID); err != nil {
		return nil, fmt.Errorf("query hostel revenue: %w", err)
	}
	return entries, nil
}

// Bookings returns status and end date of every booking resolved to the hostel.
func (r *AnalyticsRepository) Bookings(ctx context.Context, hostelID string) ([]BookingSpan, error) {
	const query = `SELECT status, end_date FROM bookings WHERE hostel_id = $1`
	var spans []BookingSpan
	if err := r.db.SelectContext(ctx, &spans, query, hostelID); err != nil {
		return nil, fmt.Errorf("query hostel bookings: %w", err)
	}
	return spans, nil
}
