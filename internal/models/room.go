package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// RoomStatus enumerates derived room availability states.
type RoomStatus string

const (
	RoomStatusAvailable       RoomStatus = "Available"
	RoomStatusPartiallyBooked RoomStatus = "PartiallyBooked"
	RoomStatusBooked          RoomStatus = "Booked"
	RoomStatusMaintenance     RoomStatus = "Maintenance"
)

// ParseRoomStatus accepts canonical names plus the legacy PartiallyAvailable alias.
func ParseRoomStatus(raw string) (RoomStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available":
		return RoomStatusAvailable, true
	case "partiallybooked", "partiallyavailable":
		return RoomStatusPartiallyBooked, true
	case "booked":
		return RoomStatusBooked, true
	case "maintenance":
		return RoomStatusMaintenance, true
	default:
		return "", false
	}
}

// DeriveRoomStatus computes the status implied by occupancy and the maintenance flag.
func DeriveRoomStatus(capacity, occupants int, maintenance bool) RoomStatus {
	switch {
	case maintenance:
		return RoomStatusMaintenance
	case occupants <= 0:
		return RoomStatusAvailable
	case occupants >= capacity:
		return RoomStatusBooked
	default:
		return RoomStatusPartiallyBooked
	}
}

// Room is a physical room within a hostel.
type Room struct {
	ID               string          `db:"id" json:"id"`
	HostelID         string          `db:"hostel_id" json:"hostel_id"`
	RoomNumber       string          `db:"room_number" json:"room_number"`
	Floor            int             `db:"floor" json:"floor"`
	RoomType         string          `db:"room_type" json:"room_type"`
	Price            decimal.Decimal `db:"price" json:"price"`
	Capacity         int             `db:"capacity" json:"capacity"`
	CurrentOccupants int             `db:"current_occupants" json:"current_occupants"`
	Status           RoomStatus      `db:"status" json:"status"`
	Maintenance      bool            `db:"maintenance" json:"maintenance"`
	AssignedStudents pq.StringArray  `db:"assigned_students" json:"assigned_students"`
	OccupancyResetAt *time.Time      `db:"occupancy_reset_at" json:"occupancy_reset_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// Refresh recomputes Status from the occupancy fields.
func (r *Room) Refresh() {
	r.Status = DeriveRoomStatus(r.Capacity, r.CurrentOccupants, r.Maintenance)
}

// HasVacancy reports whether one more student fits.
func (r *Room) HasVacancy() bool {
	return r.CurrentOccupants < r.Capacity
}

// HasStudent reports whether the student is already listed as an occupant.
func (r *Room) HasStudent(studentID string) bool {
	for _, id := range r.AssignedStudents {
		if id == studentID {
			return true
		}
	}
	return false
}

// OccupancyCheck compares a room's counter against its assignment history.
type OccupancyCheck struct {
	RoomID            string `json:"room_id"`
	CurrentOccupants  int    `json:"current_occupants"`
	AssignedStudents  int    `json:"assigned_students"`
	Drift             int    `json:"drift"`
	ExpectedOccupants int    `json:"expected_occupants"`
	Consistent        bool   `json:"consistent"`
}

// RoomFilter scopes room listings.
type RoomFilter struct {
	HostelID string
	Status   RoomStatus
}
