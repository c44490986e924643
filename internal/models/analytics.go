package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HostelSummary aggregates revenue and occupancy figures for one hostel.
type HostelSummary struct {
	HostelID       string          `json:"hostel_id"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue decimal.Decimal `json:"monthly_revenue"`
	OccupancyRate  float64         `json:"occupancy_rate"`
	OccupiedRooms  int             `json:"occupied_rooms"`
	TotalRooms     int             `json:"total_rooms"`
	ActiveBookings int             `json:"active_bookings"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// RoomOccupancy is one row of the per-room breakdown used by exports.
type RoomOccupancy struct {
	RoomID           string     `db:"room_id" json:"room_id"`
	RoomNumber       string     `db:"room_number" json:"room_number"`
	Capacity         int        `db:"capacity" json:"capacity"`
	CurrentOccupants int        `db:"current_occupants" json:"current_occupants"`
	Status           RoomStatus `db:"status" json:"status"`
}

// HostelReport bundles the summary with its per-room breakdown.
type HostelReport struct {
	Summary HostelSummary   `json:"summary"`
	Rooms   []RoomOccupancy `json:"rooms"`
}
