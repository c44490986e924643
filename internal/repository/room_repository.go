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

const roomColumns = `id, hostel_id, room_number, floor, room_type, price, capacity, current_occupants, status,
	maintenance, assigned_students, occupancy_reset_at, created_at, updated_at`

// RoomMutation edits a locked room in place. Returning an error aborts the transaction.
type RoomMutation func(room *models.Room) error

// RoomRepository persists physical rooms and their occupancy.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	if room.AssignedStudents == nil {
		room.AssignedStudents = []string{}
	}
	room.Refresh()
	const query = `INSERT INTO rooms (id, hostel_id, room_number, floor, room_type, price, capacity, current_occupants, status,
	maintenance, assigned_students, occupancy_reset_at, created_at, updated_at)
	VALUES (:id, :hostel_id, :room_number, :floor, :room_type, :price, :capacity, :current_occupants, :status,
	:maintenance, :assigned_students, :occupancy_reset_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// FindByID returns a room by identifier.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// List returns rooms matching the filter ordered by room number.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT ` + roomColumns + ` FROM rooms`)
	var conditions []string
	var args []interface{}
	if filter.HostelID != "" {
		args = append(args, filter.HostelID)
		conditions = append(conditions, fmt.Sprintf("hostel_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY room_number ASC")

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Mutate locks the room row, applies fn and persists the resulting occupancy
// state in the same transaction. Status is always re-derived before writing.
func (r *RoomRepository) Mutate(ctx context.Context, id string, fn RoomMutation) (room *models.Room, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin room transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked models.Room
	if err = tx.GetContext(ctx, &locked, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock room: %w", err)
	}

	if err = fn(&locked); err != nil {
		return nil, err
	}
	locked.Refresh()
	locked.UpdatedAt = time.Now().UTC()
	if err = updateRoomState(ctx, tx, &locked); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit room transaction: %w", err)
	}
	return &locked, nil
}

func updateRoomState(ctx context.Context, tx *sqlx.Tx, room *models.Room) error {
	const query = `UPDATE rooms SET current_occupants = $2, assigned_students = $3, status = $4, maintenance = $5,
	occupancy_reset_at = $6, updated_at = $7 WHERE id = $1 AND $2 <= capacity`
	result, err := tx.ExecContext(ctx, query, room.ID, room.CurrentOccupants, room.AssignedStudents, room.Status,
		room.Maintenance, room.OccupancyResetAt, room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update room state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check room update rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleWrite
	}
	return nil
}
