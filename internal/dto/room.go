package dto

import "github.com/shopspring/decimal"

// CreateRoomRequest registers a room in a custodian's hostel.
type CreateRoomRequest struct {
	HostelID   string          `json:"hostel_id" validate:"required"`
	RoomNumber string          `json:"room_number" validate:"required,max=32"`
	Floor      int             `json:"floor" validate:"gte=0"`
	RoomType   string          `json:"room_type" validate:"max=64"`
	Capacity   int             `json:"capacity" validate:"required,gte=1"`
	Price      decimal.Decimal `json:"price"`
}

// ForceRoomStatusRequest is an administrative status override.
type ForceRoomStatusRequest struct {
	Status string `json:"status" validate:"required"`
}
