package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-booking-api/internal/models"
)

// HostelRepository reads the hostel catalog. The catalog is owned elsewhere so
// this repository never writes.
type HostelRepository struct {
	db *sqlx.DB
}

// NewHostelRepository constructs the repository.
func NewHostelRepository(db *sqlx.DB) *HostelRepository {
	return &HostelRepository{db: db}
}

// FindByID returns a hostel by identifier.
func (r *HostelRepository) FindByID(ctx context.Context, id string) (*models.Hostel, error) {
	const query = `SELECT id, name, custodian_id, created_at, updated_at FROM hostels WHERE id::text = $1`
	var hostel models.Hostel
	if err := r.db.GetContext(ctx, &hostel, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find hostel: %w", err)
	}
	return &hostel, nil
}

// Resolve maps a free-form hostel reference (id or name) onto a catalog entry.
func (r *HostelRepository) Resolve(ctx context.Context, ref string) (*models.Hostel, error) {
	const query = `SELECT id, name, custodian_id, created_at, updated_at FROM hostels
	WHERE id::text = $1 OR LOWER(name) = LOWER($1)
	ORDER BY (id::text = $1) DESC LIMIT 1`
	var hostel models.Hostel
	if err := r.db.GetContext(ctx, &hostel, query, ref); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("resolve hostel: %w", err)
	}
	return &hostel, nil
}

// ResolveRoom maps a free-form room reference (id or room number) within a hostel.
func (r *HostelRepository) ResolveRoom(ctx context.Context, hostelID, ref string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms
	WHERE hostel_id::text = $1 AND (id::text = $2 OR room_number = $2)
	ORDER BY (id::text = $2) DESC LIMIT 1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, hostelID, ref); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("resolve room: %w", err)
	}
	return &room, nil
}
